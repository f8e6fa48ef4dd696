package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/lcchat/internal/api"
	"github.com/matheus3301/lcchat/internal/config"
	"github.com/matheus3301/lcchat/internal/lock"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server manages the gRPC server lifecycle for a session daemon.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the session's Unix domain socket.
// It requires the session lock so a second daemon never removes the socket
// of a running one.
func NewServer(
	p Params,
	_ *lock.Lock,
	cfg *config.Config,
	logger *zap.Logger,
	m *metrics.Metrics,
	sessionSvc *api.SessionService,
	chatSvc *api.ChatService,
	statusSvc *api.StatusService,
) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = session.SocketPath(p.SessionName)
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	// Set socket permissions to 0600.
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	limits := ratelimit.New(cfg.RateLimit.RPCPerSecond, cfg.RateLimit.RPCBurst, 0)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(api.UnaryInterceptor(limits, logger, m)))
	rpc.RegisterSessionServiceServer(srv, sessionSvc)
	rpc.RegisterChatServiceServer(srv, chatSvc)
	rpc.RegisterStatusServiceServer(srv, statusSvc)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file. Streams
// still open when ctx ends are cut off.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
	_ = os.Remove(s.socketPath)
}
