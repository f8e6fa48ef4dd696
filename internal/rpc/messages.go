package rpc

// Empty is the request or response of calls that carry nothing.
type Empty struct{}

// SessionStatus describes the daemon's session.
type SessionStatus struct {
	Session   string `json:"session"`
	State     string `json:"state"`
	UptimeMs  int64  `json:"uptime_ms"`
	SignedIn  bool   `json:"signed_in"`
	UserID    string `json:"user_id,omitempty"`
	Busy      bool   `json:"busy"`
	LastError string `json:"last_error,omitempty"`
	OpenChat  string `json:"open_chat,omitempty"`
}

// SessionEvent is pushed by WatchSessionEvents.
type SessionEvent struct {
	Kind    string `json:"kind"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	At      int64  `json:"at"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Number   string `json:"number"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the signed-in profile and a bearer token for the
// websocket gateway.
type AuthResponse struct {
	Profile Profile `json:"profile"`
	Token   string  `json:"token"`
}

type Profile struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Number   string `json:"number"`
	ImageURL string `json:"image_url,omitempty"`
}

// UpdateProfileRequest changes only the fields that are set.
type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Number *string `json:"number,omitempty"`
}

// UploadRequest carries file contents; JSON encodes them as base64.
type UploadRequest struct {
	Data []byte `json:"data"`
}

type Invite struct {
	Link   string `json:"link"`
	Number string `json:"number"`
}

type NumberRequest struct {
	Number string `json:"number"`
}

type ChatRequest struct {
	ChatID string `json:"chat_id"`
}

// Chat is a relationship as seen by the signed-in user.
type Chat struct {
	ChatID    string  `json:"chat_id"`
	Partner   Profile `json:"partner"`
	CreatedAt int64   `json:"created_at"`
}

// FindChatResponse reports whether a chat exists with a number.
type FindChatResponse struct {
	Found bool  `json:"found"`
	Chat  *Chat `json:"chat,omitempty"`
}

type ChatList struct {
	Chats []Chat `json:"chats"`
}

type SendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

type Message struct {
	ID       string `json:"id"`
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sent_at"`
	Mine     bool   `json:"mine"`
}

type MessageList struct {
	ChatID   string    `json:"chat_id"`
	Messages []Message `json:"messages"`
}

type Status struct {
	ID       string  `json:"id"`
	Author   Profile `json:"author"`
	MediaURL string  `json:"media_url"`
	PostedAt int64   `json:"posted_at"`
}

type AuthorFeed struct {
	Author Profile  `json:"author"`
	Posts  []Status `json:"posts"`
}

// Feed is a grouped status feed: the viewer's own posts, then other
// authors in order of their first visible post.
type Feed struct {
	Mine   []Status     `json:"mine"`
	Others []AuthorFeed `json:"others"`
}
