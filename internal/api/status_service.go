package api

import (
	"bytes"
	"context"

	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"google.golang.org/grpc"
)

// StatusService implements the StatusService gRPC service.
type StatusService struct {
	app   *app.App
	state *session.State
}

// NewStatusService creates the status service for the daemon's state.
func NewStatusService(a *app.App, st *session.State) *StatusService {
	return &StatusService{app: a, state: st}
}

func (s *StatusService) PostStatus(ctx context.Context, req *rpc.UploadRequest) (*rpc.Status, error) {
	p, err := s.app.PostStatus(ctx, s.state, bytes.NewReader(req.Data))
	if err != nil {
		return nil, grpcError(err)
	}
	out := StatusOf(p)
	return &out, nil
}

// WatchFeed streams the grouped status feed of the signed-in user.
func (s *StatusService) WatchFeed(_ *rpc.Empty, stream grpc.ServerStreamingServer[rpc.Feed]) error {
	me, err := s.app.Me(s.state)
	if err != nil {
		return grpcError(err)
	}
	signal, unsub := s.state.Events().Subscribe(session.KindFeed, 1)
	defer unsub()

	for {
		if posts := s.state.Feed(); posts != nil {
			if err := stream.Send(FeedOf(posts, me.UserID)); err != nil {
				return err
			}
		}
		select {
		case <-signal:
		case <-stream.Context().Done():
			return nil
		}
	}
}
