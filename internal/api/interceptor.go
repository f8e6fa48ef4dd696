package api

import (
	"context"
	"time"

	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// UnaryInterceptor applies a token bucket per method and logs failed calls.
func UnaryInterceptor(limits *ratelimit.Keyed, logger *zap.Logger, m *metrics.Metrics) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !limits.Allow(info.FullMethod, time.Now()) {
			m.RateLimited("rpc")
			return nil, grpcstatus.Error(codes.ResourceExhausted, "too many requests, slow down")
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("rpc failed",
				zap.String("method", info.FullMethod),
				zap.String("code", grpcstatus.Code(err).String()),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}
		return resp, err
	}
}
