package store

// User is a directory identity.
type User struct {
	UserID    string
	Name      string
	Number    string
	ImageURL  string
	CreatedAt int64
	UpdatedAt int64
}

// Ref returns the denormalized snapshot of u embedded in chats and statuses.
func (u User) Ref() UserRef {
	return UserRef{UserID: u.UserID, Name: u.Name, ImageURL: u.ImageURL, Number: u.Number}
}

// UserRef is a point-in-time copy of a user's display fields.
type UserRef struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Number   string `json:"number"`
}

// Chat is a relationship between two users. User1 is the participant that
// created it.
type Chat struct {
	ChatID    string
	User1     UserRef
	User2     UserRef
	CreatedAt int64
}

// Has reports whether userID participates in c.
func (c Chat) Has(userID string) bool {
	return c.User1.UserID == userID || c.User2.UserID == userID
}

// Partner returns the participant that is not userID.
func (c Chat) Partner(userID string) (UserRef, bool) {
	switch userID {
	case c.User1.UserID:
		return c.User2, true
	case c.User2.UserID:
		return c.User1, true
	}
	return UserRef{}, false
}

// Message is one entry of a chat log. Seq is the append order and breaks
// ties between equal SentAt values.
type Message struct {
	Seq      int64
	ID       string
	ChatID   string
	SenderID string
	Body     string
	SentAt   int64
}

// StatusPost is an ephemeral media post.
type StatusPost struct {
	ID       string
	Author   UserRef
	MediaURL string
	PostedAt int64
}

// MediaObject indexes an uploaded blob.
type MediaObject struct {
	ID          string
	ContentType string
	Size        int64
	CreatedAt   int64
}

// Credential is an email/password account bound to a user id.
type Credential struct {
	Email        string
	UserID       string
	PasswordHash string
	CreatedAt    int64
}
