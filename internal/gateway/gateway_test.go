package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/auth"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/contacts"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/media"
	"github.com/matheus3301/lcchat/internal/messagelog"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/statusfeed"
	"github.com/matheus3301/lcchat/internal/store"
)

type harness struct {
	app *app.App
	gw  *Server
	srv *httptest.Server
}

func newHarness(t *testing.T, connects *ratelimit.Keyed) *harness {
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
	m := metrics.New()
	b := bus.New()
	engine := live.NewEngine(b, nil, m)
	t.Cleanup(engine.Close)

	dir := directory.New(db, b, policy, nil)
	graph := contacts.New(db, dir, engine, b, policy, nil)
	ms, err := media.New(db, b, media.Options{Dir: filepath.Join(root, "media"), PublicBaseURL: "http://test"}, policy, nil, m)
	if err != nil {
		t.Fatal(err)
	}
	a := app.New(app.Deps{
		Auth: auth.New(db, auth.Options{
			Session: "main",
			Secret:  "s",
			Hash:    auth.HashParams{Time: 1, MemoryKB: 1024, Threads: 1, SaltLen: 16, KeyLen: 32},
		}, policy, nil),
		Directory: dir,
		Contacts:  graph,
		Messages:  messagelog.New(db, engine, b, policy, nil, m),
		Statuses:  statusfeed.New(db, graph, engine, b, policy, nil, m),
		Media:     ms,
		Metrics:   m,
	})
	gw := New(a, m, connects, nil)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		_ = gw.Stop(context.Background())
		srv.Close()
	})
	return &harness{app: a, gw: gw, srv: srv}
}

// seed signs up a user with one chat and returns its token and chat id.
func (h *harness) seed(t *testing.T) (token, chatID string) {
	t.Helper()
	ctx := context.Background()
	st := session.NewState("seed")
	t.Cleanup(st.Reset)
	u, err := h.app.SignUp(ctx, st, "Ann", "5551112222", "ann@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	name, number := "Bob", "5553334444"
	if _, err := h.app.Directory.Upsert(ctx, "bob", directory.Patch{Name: &name, Number: &number}); err != nil {
		t.Fatal(err)
	}
	c, err := h.app.AddChat(ctx, st, number)
	if err != nil {
		t.Fatal(err)
	}
	token, err = h.app.Auth.IssueToken(u.UserID)
	if err != nil {
		t.Fatal(err)
	}
	return token, c.ChatID
}

func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v (%v)", err, resp)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, cond func(outbound) bool) outbound {
	t.Helper()
	for {
		var frame outbound
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		if cond(frame) {
			return frame
		}
	}
}

func TestWebsocketPushesSnapshots(t *testing.T) {
	h := newHarness(t, nil)
	token, chatID := h.seed(t)
	conn := h.dial(t, token)

	chats := readUntil(t, conn, func(f outbound) bool { return f.Type == "chats" })
	if len(chats.Chats.Chats) != 1 || chats.Chats.Chats[0].Partner.Name != "Bob" {
		t.Errorf("chats frame = %+v", chats.Chats)
	}

	if err := conn.WriteJSON(inbound{Type: "open_chat", ChatID: chatID}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(inbound{Type: "send", ChatID: chatID, Body: "hello"}); err != nil {
		t.Fatal(err)
	}
	got := readUntil(t, conn, func(f outbound) bool {
		return f.Type == "messages" && len(f.Messages.Messages) == 1
	})
	if m := got.Messages.Messages[0]; m.Body != "hello" || !m.Mine || got.Messages.ChatID != chatID {
		t.Errorf("messages frame = %+v", got.Messages)
	}

	if err := conn.WriteJSON(inbound{Type: "send", ChatID: chatID, Body: "  "}); err != nil {
		t.Fatal(err)
	}
	errFrame := readUntil(t, conn, func(f outbound) bool { return f.Type == "error" })
	if errFrame.Error != "message is empty" {
		t.Errorf("error = %q", errFrame.Error)
	}

	if err := conn.WriteJSON(inbound{Type: "close_chat"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(f outbound) bool { return f.Type == "chat_closed" })
}

func TestWebsocketClosesStateOnDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	token, _ := h.seed(t)
	conn := h.dial(t, token)
	readUntil(t, conn, func(f outbound) bool { return f.Type == "chats" })
	if h.gw.Clients() != 1 {
		t.Fatalf("clients = %d, want 1", h.gw.Clients())
	}
	_ = conn.Close()

	deadline := time.After(2 * time.Second)
	for h.gw.Clients() != 0 {
		select {
		case <-deadline:
			t.Fatal("connection not released")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWebsocketRejectsBadTokens(t *testing.T) {
	h := newHarness(t, nil)
	for _, url := range []string{h.srv.URL + "/ws", h.srv.URL + "/ws?token=nope"} {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", url, resp.StatusCode)
		}
	}
}

func TestWebsocketConnectRateLimit(t *testing.T) {
	h := newHarness(t, ratelimit.New(0.001, 1, time.Minute))
	codes := make([]int, 0, 2)
	for range 2 {
		resp, err := http.Get(h.srv.URL + "/ws")
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [401 429]", codes)
	}
}

func TestMedia(t *testing.T) {
	h := newHarness(t, nil)
	png := []byte("\x89PNG\r\n\x1a\nrest")
	url, err := h.app.Media.Upload(context.Background(), bytes.NewReader(png))
	if err != nil {
		t.Fatal(err)
	}
	id := url[strings.LastIndex(url, "/")+1:]

	resp, err := http.Get(h.srv.URL + "/media/" + id)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, png) {
		t.Errorf("status %d body %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	resp, err = http.Get(h.srv.URL + "/media/not-a-uuid")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown media status = %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := http.Get(h.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(h.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "lcchat_live_active_subscriptions") {
		t.Errorf("metrics output missing lcchat collectors")
	}
}
