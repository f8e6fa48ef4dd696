package bus

import "time"

// Event is a change or lifecycle notification published on the bus.
// Origin is empty for events raised in this process and carries the remote
// process id for events relayed from elsewhere.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
	Origin    string
}

// Kinds published by the stores. Per-chat message subjects are built with
// MessagesSubject.
const (
	KindUsers        = "store.users"
	KindChats        = "store.chats"
	KindStatuses     = "store.statuses"
	KindMedia        = "store.media"
	messagesPrefix   = "store.messages."
	KindIdentity     = "identity.updated"
	KindSessionState = "session.status_changed"
)

// MessagesSubject returns the subject carrying changes to one chat's messages.
func MessagesSubject(chatID string) string {
	return messagesPrefix + chatID
}

// MessagesPrefix matches message changes for every chat.
func MessagesPrefix() string {
	return messagesPrefix
}
