package api

import (
	"context"
	"errors"

	"github.com/matheus3301/lcchat/internal/apperr"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// grpcError converts an application error into a gRPC status carrying the
// user-facing message.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return grpcstatus.Error(codes.Canceled, "canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return grpcstatus.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	return grpcstatus.Error(codeOf(apperr.KindOf(err)), apperr.Message(err))
}

func codeOf(k apperr.Kind) codes.Code {
	switch k {
	case apperr.InvalidInput:
		return codes.InvalidArgument
	case apperr.NotFound, apperr.TargetNotFound:
		return codes.NotFound
	case apperr.AlreadyExists:
		return codes.AlreadyExists
	case apperr.BackingStore:
		return codes.Unavailable
	case apperr.Unauthenticated:
		return codes.Unauthenticated
	case apperr.RateLimited:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}
