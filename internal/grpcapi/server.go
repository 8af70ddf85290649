// Package grpcapi exposes the ledger as the gRPC service custos.v1.Ledger.
// Every method takes and returns a google.protobuf.Struct whose fields are
// the JSON fields of the matching request/response DTO.
package grpcapi

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/wire"
)

const ServiceName = "custos.v1.Ledger"

// Metadata keys carrying the ambient caller and logical time.
const (
	PrincipalKey = "x-custos-principal"
	TimeKey      = "x-custos-time"
)

type Dependencies struct {
	Logger *log.Logger
	Addr   string
	Ledger *service.Ledger
}

type Server struct {
	grpcServer *grpc.Server
	logger     *log.Logger
	addr       string
	ledger     *service.Ledger
	handlers   map[string]handler
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger: d.Logger,
		addr:   d.Addr,
		ledger: d.Ledger,
	}
	s.handlers = s.methods()

	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logInterceptor))
	s.grpcServer.RegisterService(s.serviceDesc(), s)
	return s
}

// GRPCServer exposes the underlying server, e.g. to serve a bufconn
// listener in tests.
func (s *Server) GRPCServer() *grpc.Server { return s.grpcServer }

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.grpcServer.Serve(lis)
}

// Shutdown drains in-flight calls, forcing a stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

func (s *Server) logInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now().UTC()
	resp, err := next(ctx, req)
	s.logger.Printf("grpc %s code=%s dur=%s", info.FullMethod, status.Code(err), time.Since(start))
	return resp, err
}

// handler serves one method.  in is already decoded from the wire.
type handler func(ctx context.Context, c types.Call, in *structpb.Struct) (any, error)

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "custos/v1/ledger.proto",
	}
	for name := range s.handlers {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    s.unaryHandler(name),
		})
	}
	return desc
}

func (s *Server) unaryHandler(name string) grpc.MethodHandler {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return s.invoke(ctx, name, in)
		}
		info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + ServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return s.invoke(ctx, name, req.(*structpb.Struct))
		})
	}
}

func (s *Server) invoke(ctx context.Context, name string, in *structpb.Struct) (any, error) {
	c, err := s.call(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.handlers[name](ctx, c, in)
	if err != nil {
		return nil, s.toStatus(name, err)
	}
	resp, err := wire.ToStruct(out)
	if err != nil {
		s.logger.Printf("grpc %s encode: %v", name, err)
		return nil, status.Error(codes.Internal, "unexpected server error")
	}
	return resp, nil
}

// call reads the caller and time from incoming metadata.  A supplied time
// is admitted through the ledger clock as given.
func (s *Server) call(ctx context.Context) (types.Call, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	var c types.Call
	if v := md.Get(PrincipalKey); len(v) > 0 {
		c.Caller = types.PrincipalID(v[0])
	}

	var (
		n        uint64
		supplied bool
	)
	if v := md.Get(TimeKey); len(v) > 0 && v[0] != "" {
		var err error
		if n, err = strconv.ParseUint(v[0], 10, 64); err != nil {
			return types.Call{}, status.Error(codes.InvalidArgument, "INVALID_INPUT["+TimeKey+"]: time must be an unsigned integer")
		}
		supplied = true
	}
	now, err := s.ledger.Clock.Admit(ctx, types.LogicalTime(n), supplied)
	if err != nil {
		return types.Call{}, s.toStatus("clock", err)
	}
	c.Now = now
	return c, nil
}
