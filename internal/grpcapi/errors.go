package grpcapi

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
)

// codeFor maps a domain code onto a gRPC status code.
func codeFor(c service.Code) codes.Code {
	switch c {
	case service.CodeInvalidInput:
		return codes.InvalidArgument
	case service.CodeAccessDenied, service.CodeNotOwner, service.CodeNotCreator, service.CodeNotAdmin:
		return codes.PermissionDenied
	case service.CodeNotFound:
		return codes.NotFound
	case service.CodeAlreadyExists, service.CodeAlreadyOwned:
		return codes.AlreadyExists
	case service.CodeLocked, service.CodeAlreadyLocked, service.CodeAlreadyRevoked,
		service.CodeInactive, service.CodeInvalidStatus:
		return codes.FailedPrecondition
	case service.CodeLimitExceeded:
		return codes.ResourceExhausted
	}
	return codes.Internal
}

// toStatus converts a handler error.  Domain errors keep their code and
// field in the message, "CODE[field]: message"; anything else is logged.
func (s *Server) toStatus(method string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var e *service.Error
	if errors.As(err, &e) {
		return status.Error(codeFor(e.Code), e.Error())
	}
	s.logger.Printf("grpc %s error: %v", method, err)
	return status.Error(codes.Internal, "unexpected server error")
}

// DomainCode recovers the domain code from a status returned by the
// server, or "" when there is none.
func DomainCode(err error) service.Code {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return ""
	}
	head, _, found := strings.Cut(st.Message(), ":")
	if !found {
		return ""
	}
	if i := strings.IndexByte(head, '['); i >= 0 {
		head = head[:i]
	}
	return service.Code(head)
}
