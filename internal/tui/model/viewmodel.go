package model

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/tui/client"
	"github.com/matheus3301/lcchat/internal/tui/ui"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Lifecycle states reported by the daemon.
const (
	StateReady     = "READY"
	StateDegraded  = "DEGRADED"
	StateSignedOut = "SIGNED_OUT"
)

// ViewModel caches state from gRPC streams and signals UI refreshes.
type ViewModel struct {
	mu sync.RWMutex

	client   *client.Client
	status   *rpc.SessionStatus
	profile  *rpc.Profile
	chats    []rpc.Chat
	feed     *rpc.Feed
	messages *rpc.MessageList
	active   string
	Flash    *ui.FlashModel

	// watching is set while the chat list and feed streams run.
	watching    context.CancelFunc
	threadClose context.CancelFunc

	refreshCh chan struct{}
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:    c,
		Flash:     ui.NewFlashModel(),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadSessionStatus fetches current session status.
func (vm *ViewModel) LoadSessionStatus(ctx context.Context) error {
	resp, err := vm.client.Session.GetSessionStatus(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadProfile fetches the signed-in user's profile.
func (vm *ViewModel) LoadProfile(ctx context.Context) error {
	resp, err := vm.client.Session.GetProfile(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	vm.setProfile(resp)
	return nil
}

// SignIn signs the daemon's session in.
func (vm *ViewModel) SignIn(ctx context.Context, email, password string) error {
	resp, err := vm.client.Session.SignIn(ctx, &rpc.SignInRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	vm.setProfile(&resp.Profile)
	return nil
}

// SignUp registers an account and signs the daemon's session in.
func (vm *ViewModel) SignUp(ctx context.Context, name, number, email, password string) error {
	resp, err := vm.client.Session.SignUp(ctx, &rpc.SignUpRequest{
		Name: name, Number: number, Email: email, Password: password,
	})
	if err != nil {
		return err
	}
	vm.setProfile(&resp.Profile)
	return nil
}

// SignOut signs the session out and forgets the cached data.
func (vm *ViewModel) SignOut(ctx context.Context) error {
	if _, err := vm.client.Session.SignOut(ctx, &rpc.Empty{}); err != nil {
		return err
	}
	vm.stopWatching()
	vm.clear()
	return nil
}

// UpdateProfile changes the fields that are set.
func (vm *ViewModel) UpdateProfile(ctx context.Context, name, number *string) error {
	resp, err := vm.client.Session.UpdateProfile(ctx, &rpc.UpdateProfileRequest{Name: name, Number: number})
	if err != nil {
		return err
	}
	vm.setProfile(resp)
	return nil
}

// UploadAvatar replaces the profile picture.
func (vm *ViewModel) UploadAvatar(ctx context.Context, data []byte) error {
	resp, err := vm.client.Session.UploadProfileImage(ctx, &rpc.UploadRequest{Data: data})
	if err != nil {
		return err
	}
	vm.setProfile(resp)
	return nil
}

// Invite returns the signed-in user's invite link.
func (vm *ViewModel) Invite(ctx context.Context) (*rpc.Invite, error) {
	return vm.client.Session.GetInvite(ctx, &rpc.Empty{})
}

// AddChat opens a chat with the owner of number.
func (vm *ViewModel) AddChat(ctx context.Context, number string) (*rpc.Chat, error) {
	return vm.client.Chat.AddChat(ctx, &rpc.NumberRequest{Number: number})
}

// SendText sends a message to the open chat.
func (vm *ViewModel) SendText(ctx context.Context, text string) error {
	chatID := vm.ActiveChat()
	if chatID == "" {
		return errors.New("no chat open")
	}
	_, err := vm.client.Chat.SendMessage(ctx, &rpc.SendMessageRequest{ChatID: chatID, Body: text})
	return err
}

// PostStatus publishes data as a status post.
func (vm *ViewModel) PostStatus(ctx context.Context, data []byte) error {
	_, err := vm.client.Status.PostStatus(ctx, &rpc.UploadRequest{Data: data})
	if err == nil {
		vm.Flash.Info("Status posted")
	}
	return err
}

// Follow streams session events until ctx ends. The chat list and feed
// streams run while the session is signed in.
func (vm *ViewModel) Follow(ctx context.Context) {
	go func() {
		_ = watch(ctx, func(ctx context.Context) (grpc.ServerStreamingClient[rpc.SessionEvent], error) {
			return vm.client.Session.WatchSessionEvents(ctx, &rpc.Empty{})
		}, func(evt *rpc.SessionEvent) {
			vm.handleEvent(ctx, evt)
		})
	}()
}

func (vm *ViewModel) handleEvent(ctx context.Context, evt *rpc.SessionEvent) {
	switch evt.Kind {
	case "state":
		vm.mu.Lock()
		if vm.status == nil {
			vm.status = &rpc.SessionStatus{}
		}
		vm.status.State = evt.State
		vm.mu.Unlock()
		switch evt.State {
		case StateReady, StateDegraded:
			if vm.Profile() == nil {
				_ = vm.LoadProfile(ctx)
			}
			vm.startWatching(ctx)
		case StateSignedOut:
			vm.stopWatching()
			vm.clear()
		}
	case "user":
		if evt.Message == "" {
			vm.setProfile(nil)
		} else {
			_ = vm.LoadProfile(ctx)
		}
	case "error":
		if evt.Message != "" {
			vm.Flash.Warn(evt.Message)
		}
	}
	vm.signalRefresh()
}

func (vm *ViewModel) startWatching(parent context.Context) {
	vm.mu.Lock()
	if vm.watching != nil {
		vm.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	vm.watching = cancel
	vm.mu.Unlock()

	go func() {
		err := watch(ctx, func(ctx context.Context) (grpc.ServerStreamingClient[rpc.ChatList], error) {
			return vm.client.Chat.WatchChats(ctx, &rpc.Empty{})
		}, vm.SetChats)
		vm.streamEnded("chats", err)
	}()
	go func() {
		err := watch(ctx, func(ctx context.Context) (grpc.ServerStreamingClient[rpc.Feed], error) {
			return vm.client.Status.WatchFeed(ctx, &rpc.Empty{})
		}, vm.SetFeed)
		vm.streamEnded("feed", err)
	}()
}

func (vm *ViewModel) stopWatching() {
	vm.mu.Lock()
	cancel, closeThread := vm.watching, vm.threadClose
	vm.watching, vm.threadClose = nil, nil
	vm.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if closeThread != nil {
		closeThread()
	}
}

// streamEnded lets the next READY event restart the chat and feed streams.
func (vm *ViewModel) streamEnded(what string, err error) {
	if err == nil {
		return
	}
	vm.mu.Lock()
	cancel := vm.watching
	vm.watching = nil
	vm.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if grpcstatus.Code(err) != codes.Unauthenticated {
		vm.Flash.Warn(what + " stream stopped: " + grpcstatus.Convert(err).Message())
	}
}

// OpenChat follows chatID's messages, replacing the previously open chat.
func (vm *ViewModel) OpenChat(parent context.Context, chatID string) {
	ctx, cancel := context.WithCancel(parent)
	vm.mu.Lock()
	prev := vm.threadClose
	vm.threadClose = cancel
	vm.active = chatID
	vm.messages = nil
	vm.mu.Unlock()
	if prev != nil {
		prev()
	}
	vm.signalRefresh()

	go func() {
		err := watch(ctx, func(ctx context.Context) (grpc.ServerStreamingClient[rpc.MessageList], error) {
			return vm.client.Chat.WatchMessages(ctx, &rpc.ChatRequest{ChatID: chatID})
		}, vm.SetMessages)
		if err != nil && grpcstatus.Code(err) != codes.Aborted {
			vm.Flash.Err(err)
		}
	}()
}

// CloseChat stops following the open chat.
func (vm *ViewModel) CloseChat(ctx context.Context) {
	vm.mu.Lock()
	cancel := vm.threadClose
	vm.threadClose = nil
	vm.active = ""
	vm.messages = nil
	vm.mu.Unlock()
	if cancel != nil {
		cancel()
		_, _ = vm.client.Chat.CloseChat(ctx, &rpc.Empty{})
	}
	vm.signalRefresh()
}

// SetChats stores a chat list snapshot.
func (vm *ViewModel) SetChats(list *rpc.ChatList) {
	vm.mu.Lock()
	vm.chats = list.Chats
	vm.mu.Unlock()
	vm.signalRefresh()
}

// SetFeed stores a feed snapshot.
func (vm *ViewModel) SetFeed(feed *rpc.Feed) {
	vm.mu.Lock()
	vm.feed = feed
	vm.mu.Unlock()
	vm.signalRefresh()
}

// SetMessages stores a message snapshot. Snapshots for a chat other than the
// open one are dropped.
func (vm *ViewModel) SetMessages(list *rpc.MessageList) {
	vm.mu.Lock()
	if list.ChatID != vm.active {
		vm.mu.Unlock()
		return
	}
	vm.messages = list
	vm.mu.Unlock()
	vm.signalRefresh()
}

func (vm *ViewModel) setProfile(p *rpc.Profile) {
	vm.mu.Lock()
	vm.profile = p
	vm.mu.Unlock()
	vm.signalRefresh()
}

func (vm *ViewModel) clear() {
	vm.mu.Lock()
	vm.profile = nil
	vm.chats = nil
	vm.feed = nil
	vm.messages = nil
	vm.active = ""
	vm.mu.Unlock()
	vm.signalRefresh()
}

// Chats returns a snapshot of the current chat list.
func (vm *ViewModel) Chats() []rpc.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.chats
}

// Chat returns the cached chat with chatID.
func (vm *ViewModel) Chat(chatID string) (rpc.Chat, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.chats {
		if c.ChatID == chatID {
			return c, true
		}
	}
	return rpc.Chat{}, false
}

// Feed returns the latest feed, or nil.
func (vm *ViewModel) Feed() *rpc.Feed {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.feed
}

// Messages returns the open chat's messages.
func (vm *ViewModel) Messages() []rpc.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.messages == nil {
		return nil
	}
	return vm.messages.Messages
}

// ActiveChat returns the open chat's ID.
func (vm *ViewModel) ActiveChat() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.active
}

// Profile returns the signed-in profile, or nil.
func (vm *ViewModel) Profile() *rpc.Profile {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.profile
}

// State returns the last known lifecycle state.
func (vm *ViewModel) State() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil {
		return ""
	}
	return vm.status.State
}

// SessionStatus returns the last fetched session status, or nil.
func (vm *ViewModel) SessionStatus() *rpc.SessionStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// watch runs a server stream until ctx ends, reopening it with backoff when
// the daemon is unavailable. Other stream errors end the watch.
func watch[T any](ctx context.Context, open func(context.Context) (grpc.ServerStreamingClient[T], error), apply func(*T)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		stream, err := open(ctx)
		if err != nil {
			return classify(ctx, err)
		}
		for {
			msg, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return classify(ctx, err)
			}
			b.Reset()
			apply(msg)
		}
	}, backoff.WithContext(b, ctx))
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	if grpcstatus.Code(err) == codes.Unavailable {
		return err
	}
	return backoff.Permanent(err)
}
