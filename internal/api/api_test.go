package api

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/auth"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/contacts"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/media"
	"github.com/matheus3301/lcchat/internal/messagelog"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/status"
	"github.com/matheus3301/lcchat/internal/statusfeed"
	"github.com/matheus3301/lcchat/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	dir     *directory.Directory
	session rpc.SessionServiceClient
	chats   rpc.ChatServiceClient
	feed    rpc.StatusServiceClient
}

func newHarness(t *testing.T, rpcLimit *ratelimit.Keyed) *harness {
	t.Helper()
	root := t.TempDir()
	db, err := store.Open(filepath.Join(root, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	policy := retry.DefaultPolicy()
	policy.Transient = store.IsTransient
	b := bus.New()
	engine := live.NewEngine(b, nil, nil)
	t.Cleanup(engine.Close)

	dir := directory.New(db, b, policy, nil)
	graph := contacts.New(db, dir, engine, b, policy, nil)
	ms, err := media.New(db, b, media.Options{Dir: filepath.Join(root, "media"), PublicBaseURL: "http://test"}, policy, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	machine := status.NewMachine(b)
	a := app.New(app.Deps{
		Auth: auth.New(db, auth.Options{
			Session: "main",
			Secret:  "s",
			Hash:    auth.HashParams{Time: 1, MemoryKB: 1024, Threads: 1, SaltLen: 16, KeyLen: 32},
		}, policy, nil),
		Directory: dir,
		Contacts:  graph,
		Messages:  messagelog.New(db, engine, b, policy, nil, nil),
		Statuses:  statusfeed.New(db, graph, engine, b, policy, nil, nil),
		Media:     ms,
		Machine:   machine,
	})
	if err := machine.Transition(status.SignedOut); err != nil {
		t.Fatal(err)
	}
	st := session.NewState("main")
	t.Cleanup(st.Reset)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryInterceptor(rpcLimit, nil, nil)))
	rpc.RegisterSessionServiceServer(srv, NewSessionService(a, st, machine, b))
	rpc.RegisterChatServiceServer(srv, NewChatService(a, st))
	rpc.RegisterStatusServiceServer(srv, NewStatusService(a, st))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{
		dir:     dir,
		session: rpc.NewSessionServiceClient(conn),
		chats:   rpc.NewChatServiceClient(conn),
		feed:    rpc.NewStatusServiceClient(conn),
	}
}

func (h *harness) signUp(t *testing.T) *rpc.AuthResponse {
	t.Helper()
	resp, err := h.session.SignUp(context.Background(), &rpc.SignUpRequest{
		Name: "Ann", Number: "5551112222", Email: "ann@example.com", Password: "secret1",
	})
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (h *harness) partner(t *testing.T) store.User {
	t.Helper()
	name, number := "Bob", "5553334444"
	u, err := h.dir.Upsert(context.Background(), "bob", directory.Patch{Name: &name, Number: &number})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func recvUntil[T any](t *testing.T, stream grpc.ServerStreamingClient[T], cond func(*T) bool) *T {
	t.Helper()
	for {
		v, err := stream.Recv()
		if err != nil {
			t.Fatalf("stream ended before the expected snapshot: %v", err)
		}
		if cond(v) {
			return v
		}
	}
}

func TestSignUpAndStatus(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	st, err := h.session.GetSessionStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if st.SignedIn || st.State != string(status.SignedOut) {
		t.Errorf("before sign-up: %+v", st)
	}

	resp := h.signUp(t)
	if resp.Token == "" || resp.Profile.Number != "5551112222" {
		t.Errorf("auth response = %+v", resp)
	}

	st, err = h.session.GetSessionStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if !st.SignedIn || st.UserID != resp.Profile.UserID || st.State != string(status.Ready) {
		t.Errorf("after sign-up: %+v", st)
	}

	inv, err := h.session.GetInvite(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Link != app.InviteScheme+"5551112222" || inv.Number != "5551112222" {
		t.Errorf("invite = %+v", inv)
	}

	name := "Annie"
	p, err := h.session.UpdateProfile(ctx, &rpc.UpdateProfileRequest{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Annie" || p.Number != "5551112222" {
		t.Errorf("profile = %+v", p)
	}
}

func TestErrorCodes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if _, err := h.chats.ListChats(ctx, &rpc.Empty{}); grpcstatus.Code(err) != codes.Unauthenticated {
		t.Errorf("signed out ListChats code = %v", grpcstatus.Code(err))
	}

	h.signUp(t)
	h.partner(t)

	tests := []struct {
		name   string
		number string
		code   codes.Code
		msg    string
	}{
		{"invalid", "abc", codes.InvalidArgument, "number must contain digits only"},
		{"unknown", "5550000000", codes.NotFound, "number not found"},
		{"own number", "5551112222", codes.InvalidArgument, "cannot add your own number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.chats.AddChat(ctx, &rpc.NumberRequest{Number: tt.number})
			s, _ := grpcstatus.FromError(err)
			if s.Code() != tt.code {
				t.Errorf("code = %v, want %v", s.Code(), tt.code)
			}
			if tt.msg != "" && s.Message() != tt.msg {
				t.Errorf("message = %q, want %q", s.Message(), tt.msg)
			}
		})
	}

	if _, err := h.chats.AddChat(ctx, &rpc.NumberRequest{Number: "5553334444"}); err != nil {
		t.Fatal(err)
	}
	_, err := h.chats.AddChat(ctx, &rpc.NumberRequest{Number: app.InviteScheme + "5553334444"})
	if grpcstatus.Code(err) != codes.AlreadyExists {
		t.Errorf("duplicate code = %v, want AlreadyExists", grpcstatus.Code(err))
	}
}

func TestChatFlow(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	me := h.signUp(t)
	bob := h.partner(t)

	chats, err := h.chats.WatchChats(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	chat, err := h.chats.AddChat(ctx, &rpc.NumberRequest{Number: bob.Number})
	if err != nil {
		t.Fatal(err)
	}
	if chat.Partner.UserID != bob.UserID {
		t.Errorf("partner = %+v", chat.Partner)
	}
	recvUntil(t, chats, func(l *rpc.ChatList) bool { return len(l.Chats) == 1 })

	found, err := h.chats.FindChat(ctx, &rpc.NumberRequest{Number: bob.Number})
	if err != nil || !found.Found || found.Chat.ChatID != chat.ChatID {
		t.Errorf("FindChat = %+v, %v", found, err)
	}

	msgs, err := h.chats.WatchMessages(ctx, &rpc.ChatRequest{ChatID: chat.ChatID})
	if err != nil {
		t.Fatal(err)
	}
	recvUntil(t, msgs, func(l *rpc.MessageList) bool { return len(l.Messages) == 0 })

	for _, body := range []string{"hi", "there"} {
		if _, err := h.chats.SendMessage(ctx, &rpc.SendMessageRequest{ChatID: chat.ChatID, Body: body}); err != nil {
			t.Fatal(err)
		}
	}
	got := recvUntil(t, msgs, func(l *rpc.MessageList) bool { return len(l.Messages) == 2 })
	if got.Messages[0].Body != "hi" || !got.Messages[0].Mine || got.Messages[0].SenderID != me.Profile.UserID {
		t.Errorf("messages = %+v", got.Messages)
	}

	_, err = h.chats.SendMessage(ctx, &rpc.SendMessageRequest{ChatID: chat.ChatID, Body: "   "})
	if grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("empty body code = %v", grpcstatus.Code(err))
	}

	history, err := h.chats.ListMessages(ctx, &rpc.ChatRequest{ChatID: chat.ChatID})
	if err != nil || len(history.Messages) != 2 {
		t.Errorf("ListMessages = %+v, %v", history, err)
	}
}

func TestNewerWatchMessagesAbortsOlder(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.signUp(t)
	bob := h.partner(t)
	chat, err := h.chats.AddChat(ctx, &rpc.NumberRequest{Number: bob.Number})
	if err != nil {
		t.Fatal(err)
	}

	first, err := h.chats.WatchMessages(ctx, &rpc.ChatRequest{ChatID: chat.ChatID})
	if err != nil {
		t.Fatal(err)
	}
	recvUntil(t, first, func(*rpc.MessageList) bool { return true })

	second, err := h.chats.WatchMessages(ctx, &rpc.ChatRequest{ChatID: chat.ChatID})
	if err != nil {
		t.Fatal(err)
	}
	recvUntil(t, second, func(*rpc.MessageList) bool { return true })

	for {
		_, err := first.Recv()
		if err == nil {
			continue
		}
		if grpcstatus.Code(err) != codes.Aborted {
			t.Errorf("older stream ended with %v, want Aborted", err)
		}
		break
	}

	st, err := h.session.GetSessionStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if st.OpenChat != chat.ChatID {
		t.Errorf("open chat = %q, want %q", st.OpenChat, chat.ChatID)
	}
}

func TestWatchFeed(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.signUp(t)

	feed, err := h.feed.WatchFeed(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	post, err := h.feed.PostStatus(ctx, &rpc.UploadRequest{Data: []byte("\x89PNG\r\n\x1a\n")})
	if err != nil {
		t.Fatal(err)
	}
	got := recvUntil(t, feed, func(f *rpc.Feed) bool { return len(f.Mine) == 1 })
	if got.Mine[0].ID != post.ID || len(got.Others) != 0 {
		t.Errorf("feed = %+v", got)
	}

	_, err = h.feed.PostStatus(ctx, &rpc.UploadRequest{})
	if grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("empty upload code = %v", grpcstatus.Code(err))
	}
}

func TestInterceptorRateLimits(t *testing.T) {
	h := newHarness(t, ratelimit.New(0.001, 2, time.Minute))
	ctx := context.Background()

	for range 2 {
		if _, err := h.session.GetSessionStatus(ctx, &rpc.Empty{}); err != nil {
			t.Fatal(err)
		}
	}
	_, err := h.session.GetSessionStatus(ctx, &rpc.Empty{})
	if grpcstatus.Code(err) != codes.ResourceExhausted {
		t.Errorf("code = %v, want ResourceExhausted", grpcstatus.Code(err))
	}
	// Buckets are per method.
	if _, err := h.session.GetInvite(ctx, &rpc.Empty{}); grpcstatus.Code(err) == codes.ResourceExhausted {
		t.Error("GetInvite shares GetSessionStatus's bucket")
	}
}

func TestGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{apperr.New(apperr.InvalidInput, "op", "bad"), codes.InvalidArgument},
		{apperr.New(apperr.NotFound, "op", ""), codes.NotFound},
		{apperr.New(apperr.TargetNotFound, "op", ""), codes.NotFound},
		{apperr.New(apperr.AlreadyExists, "op", ""), codes.AlreadyExists},
		{apperr.Store("op", errors.New("database is locked")), codes.Unavailable},
		{apperr.New(apperr.Unauthenticated, "op", ""), codes.Unauthenticated},
		{apperr.New(apperr.RateLimited, "op", ""), codes.ResourceExhausted},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
		{grpcstatus.Error(codes.Aborted, "x"), codes.Aborted},
	}
	for _, tt := range tests {
		if got := grpcstatus.Code(grpcError(tt.err)); got != tt.code {
			t.Errorf("grpcError(%v) code = %v, want %v", tt.err, got, tt.code)
		}
	}
	if grpcError(nil) != nil {
		t.Error("grpcError(nil) should be nil")
	}
}
