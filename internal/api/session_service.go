package api

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/status"
	"github.com/matheus3301/lcchat/internal/store"
	"google.golang.org/grpc"
)

// SessionService implements the SessionService gRPC service.
type SessionService struct {
	app       *app.App
	state     *session.State
	machine   *status.Machine
	bus       *bus.Bus
	startedAt time.Time
}

// NewSessionService creates the session service for the daemon's state.
func NewSessionService(a *app.App, st *session.State, machine *status.Machine, b *bus.Bus) *SessionService {
	return &SessionService{
		app:       a,
		state:     st,
		machine:   machine,
		bus:       b,
		startedAt: time.Now(),
	}
}

func (s *SessionService) GetSessionStatus(_ context.Context, _ *rpc.Empty) (*rpc.SessionStatus, error) {
	resp := &rpc.SessionStatus{
		Session:   s.state.Name(),
		State:     string(s.machine.Current()),
		UptimeMs:  time.Since(s.startedAt).Milliseconds(),
		Busy:      s.state.Busy(),
		LastError: s.state.LastError(),
	}
	if u, ok := s.state.User(); ok {
		resp.SignedIn = true
		resp.UserID = u.UserID
	}
	resp.OpenChat, _ = s.state.OpenChat()
	return resp, nil
}

func (s *SessionService) SignUp(ctx context.Context, req *rpc.SignUpRequest) (*rpc.AuthResponse, error) {
	u, err := s.app.SignUp(ctx, s.state, req.Name, req.Number, req.Email, req.Password)
	if err != nil {
		return nil, grpcError(err)
	}
	return s.authResponse(u)
}

func (s *SessionService) SignIn(ctx context.Context, req *rpc.SignInRequest) (*rpc.AuthResponse, error) {
	u, err := s.app.SignIn(ctx, s.state, req.Email, req.Password)
	if err != nil {
		return nil, grpcError(err)
	}
	return s.authResponse(u)
}

func (s *SessionService) authResponse(u store.User) (*rpc.AuthResponse, error) {
	token, err := s.app.Auth.IssueToken(u.UserID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.AuthResponse{Profile: *ProfileOf(u), Token: token}, nil
}

func (s *SessionService) SignOut(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	if err := s.app.SignOut(ctx, s.state); err != nil {
		return nil, grpcError(err)
	}
	return &rpc.Empty{}, nil
}

func (s *SessionService) GetProfile(_ context.Context, _ *rpc.Empty) (*rpc.Profile, error) {
	u, err := s.app.Me(s.state)
	if err != nil {
		return nil, grpcError(err)
	}
	return ProfileOf(u), nil
}

func (s *SessionService) UpdateProfile(ctx context.Context, req *rpc.UpdateProfileRequest) (*rpc.Profile, error) {
	u, err := s.app.UpdateProfile(ctx, s.state, req.Name, req.Number)
	if err != nil {
		return nil, grpcError(err)
	}
	return ProfileOf(u), nil
}

func (s *SessionService) UploadProfileImage(ctx context.Context, req *rpc.UploadRequest) (*rpc.Profile, error) {
	u, err := s.app.UpdateProfileImage(ctx, s.state, bytes.NewReader(req.Data))
	if err != nil {
		return nil, grpcError(err)
	}
	return ProfileOf(u), nil
}

func (s *SessionService) GetInvite(_ context.Context, _ *rpc.Empty) (*rpc.Invite, error) {
	link, err := s.app.InviteLink(s.state)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.Invite{Link: link, Number: app.ParseInvite(link)}, nil
}

// WatchSessionEvents streams lifecycle transitions and the session's busy,
// error and sign-in changes.
func (s *SessionService) WatchSessionEvents(_ *rpc.Empty, stream grpc.ServerStreamingServer[rpc.SessionEvent]) error {
	lifecycle, unsubLifecycle := s.bus.Subscribe(bus.KindSessionState, 16)
	defer unsubLifecycle()
	local, unsubLocal := s.state.Events().SubscribeAny([]string{session.KindUser, session.KindBusy, session.KindError}, 16)
	defer unsubLocal()

	if err := stream.Send(&rpc.SessionEvent{
		Kind:  "state",
		State: string(s.machine.Current()),
		At:    time.Now().UnixMilli(),
	}); err != nil {
		return err
	}

	for {
		var evt *rpc.SessionEvent
		select {
		case e := <-lifecycle:
			change, _ := e.Payload.(status.StatusChange)
			evt = &rpc.SessionEvent{Kind: "state", State: string(change.To), At: e.Timestamp.UnixMilli()}
		case e := <-local:
			evt = s.localEvent(e)
		case <-stream.Context().Done():
			return nil
		}
		if err := stream.Send(evt); err != nil {
			return err
		}
	}
}

func (s *SessionService) localEvent(e bus.Event) *rpc.SessionEvent {
	evt := &rpc.SessionEvent{Kind: strings.TrimPrefix(e.Kind, "state."), At: e.Timestamp.UnixMilli()}
	switch e.Kind {
	case session.KindBusy:
		evt.Message = strconv.FormatBool(s.state.Busy())
	case session.KindError:
		evt.Message, _ = e.Payload.(string)
	case session.KindUser:
		if u, ok := e.Payload.(store.User); ok {
			evt.Message = u.UserID
		}
	}
	return evt
}
