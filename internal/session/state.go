package session

import (
	"slices"
	"sync"

	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/store"
)

// Kinds published on a State's own event bus.
const (
	KindUser     = "state.user"
	KindBusy     = "state.busy"
	KindError    = "state.error"
	KindChats    = "state.chats"
	KindFeed     = "state.feed"
	KindMessages = "state.messages"
)

// MessagesUpdate is the payload of KindMessages. Gen identifies the
// message-log subscription that produced it.
type MessagesUpdate struct {
	ChatID   string
	Gen      uint64
	Messages []store.Message
}

// State is everything one signed-in client holds: the current user, the
// loading and error indicators, the three live subscriptions and their
// latest snapshots. The daemon keeps one for its session; the websocket
// gateway keeps one per connection.
type State struct {
	name   string
	events *bus.Bus

	mu      sync.Mutex
	user    *store.User
	busy    int
	lastErr string

	chatsHandle *live.Handle
	feedHandle  *live.Handle
	msgHandle   *live.Handle
	msgChatID   string
	msgGen      uint64

	chats    []store.Chat
	feed     []store.StatusPost
	messages []store.Message
}

// NewState creates an empty, signed-out state.
func NewState(name string) *State {
	return &State{name: name, events: bus.New()}
}

// Name returns the session name.
func (s *State) Name() string {
	return s.name
}

// Events is the bus carrying this state's changes.
func (s *State) Events() *bus.Bus {
	return s.events
}

// User returns the signed-in user.
func (s *State) User() (store.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return store.User{}, false
	}
	return *s.user, true
}

// SetUser records the signed-in user's profile.
func (s *State) SetUser(u store.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindUser, Payload: u})
}

// Begin marks the state busy until the returned func is called.
func (s *State) Begin() (done func()) {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
	s.events.Notify(KindBusy)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy--
			s.mu.Unlock()
			s.events.Notify(KindBusy)
		})
	}
}

// Busy reports whether any operation is in flight.
func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy > 0
}

// SetError records msg as the last error shown to the user.
func (s *State) SetError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindError, Payload: msg})
}

// LastError returns the last recorded error message.
func (s *State) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ReplaceChats installs h as the chat list subscription, cancelling the
// previous one.
func (s *State) ReplaceChats(h *live.Handle) {
	s.mu.Lock()
	prev := s.chatsHandle
	s.chatsHandle = h
	s.mu.Unlock()
	prev.Cancel()
}

// ReplaceFeed installs h as the status feed subscription, cancelling the
// previous one.
func (s *State) ReplaceFeed(h *live.Handle) {
	s.mu.Lock()
	prev := s.feedHandle
	s.feedHandle = h
	s.mu.Unlock()
	prev.Cancel()
}

// OpenMessages cancels the current message-log subscription and then calls
// open with the generation of the new one. Snapshots carrying an older
// generation are ignored by SetMessages.
func (s *State) OpenMessages(chatID string, open func(gen uint64) *live.Handle) uint64 {
	s.mu.Lock()
	s.msgHandle.Cancel()
	s.msgGen++
	s.msgChatID = chatID
	s.messages = nil
	gen := s.msgGen
	s.msgHandle = open(gen)
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindMessages, Payload: MessagesUpdate{ChatID: chatID, Gen: gen}})
	return gen
}

// CloseMessages cancels the message-log subscription.
func (s *State) CloseMessages() {
	s.mu.Lock()
	s.msgHandle.Cancel()
	s.msgHandle = nil
	s.msgGen++
	s.msgChatID = ""
	s.messages = nil
	gen := s.msgGen
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindMessages, Payload: MessagesUpdate{Gen: gen}})
}

// CloseMessagesAt closes the message-log subscription only if gen is still
// the current one.
func (s *State) CloseMessagesAt(gen uint64) bool {
	s.mu.Lock()
	current := s.msgGen == gen && s.msgHandle != nil
	s.mu.Unlock()
	if !current {
		return false
	}
	s.CloseMessages()
	return true
}

// OpenChat returns the chat the message-log subscription follows and its
// generation. chatID is empty when no chat is open.
func (s *State) OpenChat() (chatID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgChatID, s.msgGen
}

// SetChats stores the latest chat list.
func (s *State) SetChats(chats []store.Chat) {
	s.mu.Lock()
	s.chats = append([]store.Chat{}, chats...)
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindChats, Payload: slices.Clone(chats)})
}

// Chats returns the latest chat list, or nil before the first snapshot.
func (s *State) Chats() []store.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chats)
}

// SetFeed stores the latest status feed.
func (s *State) SetFeed(posts []store.StatusPost) {
	s.mu.Lock()
	s.feed = append([]store.StatusPost{}, posts...)
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindFeed, Payload: slices.Clone(posts)})
}

// Feed returns the latest status feed, or nil before the first snapshot.
func (s *State) Feed() []store.StatusPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.feed)
}

// SetMessages stores a message-log snapshot. It reports false and drops the
// snapshot when gen is no longer current.
func (s *State) SetMessages(gen uint64, msgs []store.Message) bool {
	s.mu.Lock()
	if gen != s.msgGen {
		s.mu.Unlock()
		return false
	}
	s.messages = append([]store.Message{}, msgs...)
	chatID := s.msgChatID
	s.mu.Unlock()
	s.events.Publish(bus.Event{Kind: KindMessages, Payload: MessagesUpdate{ChatID: chatID, Gen: gen, Messages: slices.Clone(msgs)}})
	return true
}

// Messages returns the latest snapshot of the open chat. msgs is nil until
// the subscription delivers.
func (s *State) Messages() (chatID string, gen uint64, msgs []store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgChatID, s.msgGen, slices.Clone(s.messages)
}

// Reset cancels every subscription and signs the state out.
func (s *State) Reset() {
	s.mu.Lock()
	handles := []*live.Handle{s.chatsHandle, s.feedHandle, s.msgHandle}
	s.chatsHandle, s.feedHandle, s.msgHandle = nil, nil, nil
	s.user = nil
	s.msgGen++
	s.msgChatID = ""
	s.chats, s.feed, s.messages = nil, nil, nil
	gen := s.msgGen
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	s.events.Publish(bus.Event{Kind: KindUser})
	s.events.Publish(bus.Event{Kind: KindMessages, Payload: MessagesUpdate{Gen: gen}})
}

// Handles returns the live subscriptions currently held, for tests and
// diagnostics.
func (s *State) Handles() (chats, feed, messages *live.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatsHandle, s.feedHandle, s.msgHandle
}
