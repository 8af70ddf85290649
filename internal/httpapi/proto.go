package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/BrandonDHaskell/Custos/server/internal/wire"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads.  The largest request (a grant with a 200-character reason)
// is well under 1 KiB.
const maxRequestBody = 16 << 10

const protobufType = "application/x-protobuf"

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload: a serialized google.protobuf.Struct.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == protobufType ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

// wantsProtobuf reports whether the response should be protobuf: either
// the client asked for it or it sent protobuf itself.
func wantsProtobuf(r *http.Request) bool {
	return isProtobuf(r) || strings.Contains(r.Header.Get("Accept"), protobufType)
}

// readProto reads the request body and decodes it into v.  A body over
// maxRequestBody fails with *http.MaxBytesError.
func readProto(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	return wire.Unmarshal(body, v)
}

// writeProto encodes v and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, v any) {
	data, err := wire.Marshal(v)
	if err != nil {
		// Fall back to a plain-text error if marshalling fails.
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
