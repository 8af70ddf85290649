package grpcapi

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/wire"
)

// Client calls custos.v1.Ledger methods by name.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Invoke sends in to method and decodes the reply into out, which may be
// nil.  Caller and time travel as metadata; a zero time is omitted so the
// server uses its own clock.
func (c *Client) Invoke(ctx context.Context, call types.Call, method string, in, out any) error {
	req, err := wire.ToStruct(in)
	if err != nil {
		return err
	}

	pairs := []string{PrincipalKey, string(call.Caller)}
	if call.Now != 0 {
		pairs = append(pairs, TimeKey, strconv.FormatUint(uint64(call.Now), 10))
	}
	ctx = metadata.AppendToOutgoingContext(ctx, pairs...)

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return wire.FromStruct(resp, out)
}
