package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

const (
	principalHeader = "X-Custos-Principal"
	timeHeader      = "X-Custos-Time"
)

type errorBody struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes v in the encoding the client asked for.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsProtobuf(r) {
		writeProto(w, status, v)
		return
	}
	writeJSON(w, status, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, field, msg string) {
	respond(w, r, status, errorResponse{Error: errorBody{Code: code, Field: field, Message: msg}})
}

// statusFor maps a domain code onto an HTTP status.
func statusFor(code service.Code) int {
	switch code {
	case service.CodeInvalidInput, service.CodeInvalidStatus:
		return http.StatusBadRequest
	case service.CodeAccessDenied, service.CodeNotOwner, service.CodeNotCreator, service.CodeNotAdmin:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeAlreadyExists, service.CodeAlreadyOwned, service.CodeAlreadyLocked,
		service.CodeAlreadyRevoked, service.CodeLocked, service.CodeInactive:
		return http.StatusConflict
	case service.CodeLimitExceeded:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// fail writes err.  Anything that is not a domain error is logged and
// hidden behind a generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var e *service.Error
	if errors.As(err, &e) {
		writeError(w, r, statusFor(e.Code), string(e.Code), e.Field, e.Message)
		return
	}
	s.logger.Printf("%s %s error: %v req=%s", r.Method, r.URL.Path, err, middleware.GetReqID(r.Context()))
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "", "unexpected server error")
}

func badInput(w http.ResponseWriter, r *http.Request, field, msg string) {
	writeError(w, r, http.StatusBadRequest, string(service.CodeInvalidInput), field, msg)
}

// decode reads the request body into v.  It writes the error response
// itself and reports false when the body is unusable.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if isProtobuf(r) {
		if err := readProto(w, r, v); err != nil {
			if !tooLarge(w, r, err) {
				writeError(w, r, http.StatusBadRequest, "BAD_PROTO", "", "invalid protobuf body")
			}
			return false
		}
		return true
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if !tooLarge(w, r, err) {
			writeError(w, r, http.StatusBadRequest, "BAD_JSON", "", "invalid JSON body")
		}
		return false
	}
	return true
}

// tooLarge answers 413 when err comes from an oversized body.
func tooLarge(w http.ResponseWriter, r *http.Request, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, r, http.StatusRequestEntityTooLarge, "TOO_LARGE", "",
		fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
	return true
}

// call builds the ambient identity and time of a request.  A supplied
// time is admitted through the ledger clock as given; otherwise the call
// runs at the clock's mark.
func (s *Server) call(w http.ResponseWriter, r *http.Request) (types.Call, bool) {
	c := types.Call{Caller: types.PrincipalID(r.Header.Get(principalHeader))}

	var (
		n        uint64
		supplied bool
	)
	if v := r.Header.Get(timeHeader); v != "" {
		var err error
		if n, err = strconv.ParseUint(v, 10, 64); err != nil {
			badInput(w, r, service.TimeField, "time must be an unsigned integer")
			return types.Call{}, false
		}
		supplied = true
	}
	now, err := s.ledger.Clock.Admit(r.Context(), types.LogicalTime(n), supplied)
	if err != nil {
		s.fail(w, r, err)
		return types.Call{}, false
	}
	c.Now = now
	return c, true
}

func uintParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		badInput(w, r, name, name+" must be an unsigned integer")
		return 0, false
	}
	return v, true
}

func principalParam(r *http.Request, name string) types.PrincipalID {
	return types.PrincipalID(chi.URLParam(r, name))
}
