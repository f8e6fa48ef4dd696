// Package app runs the user-facing flows of a session: sign-up and sign-in,
// profile edits, adding chats, messaging and status posts. Every flow takes
// the explicit per-client *session.State it acts on.
package app

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/auth"
	"github.com/matheus3301/lcchat/internal/contacts"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/media"
	"github.com/matheus3301/lcchat/internal/messagelog"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/status"
	"github.com/matheus3301/lcchat/internal/statusfeed"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// InviteScheme prefixes invite links.
const InviteScheme = "lcchat://add/"

// Deps are the collaborators of an App. Machine may be nil for clients
// whose lifecycle is not tracked, such as websocket connections.
type Deps struct {
	Auth      *auth.Provider
	Directory *directory.Directory
	Contacts  *contacts.Graph
	Messages  *messagelog.Log
	Statuses  *statusfeed.Store
	Media     *media.Store
	Machine   *status.Machine
	SendLimit *ratelimit.Keyed
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// App orchestrates the stores on behalf of session states.
type App struct {
	Deps
}

// New creates an App.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &App{Deps: d}
}

// SignUp registers a new account with its profile and signs st in.
func (a *App) SignUp(ctx context.Context, st *session.State, name, number, email, password string) (u store.User, err error) {
	defer a.track(st, "sign up", &err)()

	name, number, email = strings.TrimSpace(name), strings.TrimSpace(number), strings.TrimSpace(email)
	if name == "" || number == "" || email == "" || password == "" {
		return store.User{}, apperr.New(apperr.InvalidInput, "app.signup", "please fill all fields")
	}
	if !directory.ValidNumber(number) {
		return store.User{}, apperr.New(apperr.InvalidInput, "app.signup", "number must contain digits only")
	}
	// The number check runs before the account exists so a clash leaves
	// nothing behind.
	if _, taken, err := a.Directory.LookupByNumber(ctx, number); err != nil {
		return store.User{}, err
	} else if taken {
		return store.User{}, apperr.New(apperr.AlreadyExists, "app.signup", "number already exists")
	}

	a.signOutLocal(st)
	userID, err := a.Auth.SignUp(ctx, email, password)
	if err != nil {
		return store.User{}, err
	}
	u, err = a.Directory.Upsert(ctx, userID, directory.Patch{Name: &name, Number: &number})
	if err != nil {
		return store.User{}, err
	}
	a.attach(st, u)
	a.lifecycle(status.Ready)
	return u, nil
}

// SignIn checks the credentials, loads the profile (creating an empty one
// for a first sign-in) and signs st in.
func (a *App) SignIn(ctx context.Context, st *session.State, email, password string) (u store.User, err error) {
	defer a.track(st, "sign in", &err)()

	if strings.TrimSpace(email) == "" || password == "" {
		return store.User{}, apperr.New(apperr.InvalidInput, "app.signin", "please fill all fields")
	}
	a.signOutLocal(st)
	userID, err := a.Auth.SignIn(ctx, email, password)
	if err != nil {
		return store.User{}, err
	}
	u, err = a.profile(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	a.attach(st, u)
	a.lifecycle(status.Ready)
	return u, nil
}

// Restore resumes the session's persisted sign-in, if any.
func (a *App) Restore(ctx context.Context, st *session.State) (u store.User, found bool, err error) {
	defer a.track(st, "restore", &err)()

	a.lifecycle(status.Restoring)
	userID, found, err := a.Auth.CurrentUser(ctx)
	if err != nil {
		a.lifecycle(status.Error)
		return store.User{}, false, err
	}
	if !found {
		a.lifecycle(status.SignedOut)
		return store.User{}, false, nil
	}
	u, err = a.profile(ctx, userID)
	if err != nil {
		a.lifecycle(status.Error)
		return store.User{}, false, err
	}
	a.attach(st, u)
	a.lifecycle(status.Ready)
	return u, true, nil
}

// Attach signs st in as userID without credentials. The caller has already
// authenticated the user, for example with an access token.
func (a *App) Attach(ctx context.Context, st *session.State, userID string) (u store.User, err error) {
	defer a.track(st, "attach", &err)()

	u, found, err := a.Directory.Resolve(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if !found {
		return store.User{}, apperr.New(apperr.Unauthenticated, "app.attach", "unknown user")
	}
	a.attach(st, u)
	return u, nil
}

// SignOut cancels every subscription of st and forgets the signed-in user.
func (a *App) SignOut(ctx context.Context, st *session.State) (err error) {
	defer a.track(st, "sign out", &err)()

	st.Reset()
	if err := a.Auth.SignOut(ctx); err != nil {
		return err
	}
	a.lifecycle(status.SignedOut)
	return nil
}

// Detach cancels every subscription of st without touching the persisted
// sign-in.
func (a *App) Detach(st *session.State) {
	st.Reset()
}

// UpdateProfile changes the signed-in user's name and/or number.
func (a *App) UpdateProfile(ctx context.Context, st *session.State, name, number *string) (u store.User, err error) {
	defer a.track(st, "update profile", &err)()

	me, err := a.me(st)
	if err != nil {
		return store.User{}, err
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return store.User{}, apperr.New(apperr.InvalidInput, "app.update_profile", "name cannot be empty")
	}
	u, err = a.Directory.Upsert(ctx, me.UserID, directory.Patch{Name: name, Number: number})
	if err != nil {
		return store.User{}, err
	}
	a.attach(st, u)
	return u, nil
}

// UpdateProfileImage uploads r and makes it the signed-in user's picture.
func (a *App) UpdateProfileImage(ctx context.Context, st *session.State, r io.Reader) (u store.User, err error) {
	defer a.track(st, "update profile image", &err)()

	me, err := a.me(st)
	if err != nil {
		return store.User{}, err
	}
	url, err := a.Media.Upload(ctx, r)
	if err != nil {
		return store.User{}, err
	}
	u, err = a.Directory.Upsert(ctx, me.UserID, directory.Patch{ImageURL: &url})
	if err != nil {
		return store.User{}, err
	}
	a.attach(st, u)
	return u, nil
}

// AddChat opens a chat with the user owning number.
func (a *App) AddChat(ctx context.Context, st *session.State, number string) (c store.Chat, err error) {
	defer a.track(st, "add chat", &err)()

	me, err := a.me(st)
	if err != nil {
		return store.Chat{}, err
	}
	return a.Contacts.Create(ctx, me, strings.TrimSpace(number))
}

// FindChat returns the signed-in user's chat with number, or nil.
func (a *App) FindChat(ctx context.Context, st *session.State, number string) (c *store.Chat, err error) {
	defer a.track(st, "find chat", &err)()

	me, err := a.me(st)
	if err != nil {
		return nil, err
	}
	return a.Contacts.Find(ctx, me.Number, strings.TrimSpace(number))
}

// Chats lists the signed-in user's chats.
func (a *App) Chats(ctx context.Context, st *session.State) (chats []store.Chat, err error) {
	defer a.track(st, "list chats", &err)()

	me, err := a.me(st)
	if err != nil {
		return nil, err
	}
	return a.Contacts.ListFor(ctx, me.UserID)
}

// Me returns the signed-in user, or an Unauthenticated error.
func (a *App) Me(st *session.State) (store.User, error) {
	return a.me(st)
}

// OpenChat makes chatID the chat whose messages st follows, replacing the
// previous one. It returns the generation of the new subscription.
func (a *App) OpenChat(ctx context.Context, st *session.State, chatID string) (gen uint64, err error) {
	defer a.track(st, "open chat", &err)()

	if _, err := a.chatOf(ctx, st, chatID); err != nil {
		return 0, err
	}
	gen = st.OpenMessages(chatID, func(gen uint64) *live.Handle {
		return a.Messages.Subscribe(chatID,
			healthy(a, func(msgs []store.Message) { st.SetMessages(gen, msgs) }),
			a.onError(st, "messages"))
	})
	return gen, nil
}

// CloseChat stops following messages.
func (a *App) CloseChat(st *session.State) {
	st.CloseMessages()
}

// SendMessage appends body to chatID as the signed-in user.
func (a *App) SendMessage(ctx context.Context, st *session.State, chatID, body string) (m store.Message, err error) {
	defer a.track(st, "send message", &err)()

	me, err := a.chatOf(ctx, st, chatID)
	if err != nil {
		return store.Message{}, err
	}
	if !a.SendLimit.Allow(me.UserID, time.Now()) {
		a.Metrics.RateLimited("send")
		return store.Message{}, apperr.New(apperr.RateLimited, "app.send", "")
	}
	return a.Messages.Append(ctx, chatID, me.UserID, body)
}

// History returns a chat's messages for a participant.
func (a *App) History(ctx context.Context, st *session.State, chatID string) (msgs []store.Message, err error) {
	defer a.track(st, "list messages", &err)()

	if _, err := a.chatOf(ctx, st, chatID); err != nil {
		return nil, err
	}
	return a.Messages.History(ctx, chatID)
}

// PostStatus uploads r and publishes it as the signed-in user's status.
func (a *App) PostStatus(ctx context.Context, st *session.State, r io.Reader) (p store.StatusPost, err error) {
	defer a.track(st, "post status", &err)()

	me, err := a.me(st)
	if err != nil {
		return store.StatusPost{}, err
	}
	url, err := a.Media.Upload(ctx, r)
	if err != nil {
		return store.StatusPost{}, err
	}
	return a.Statuses.Publish(ctx, me.Ref(), url)
}

// InviteLink returns the link other users scan to add the signed-in user.
func (a *App) InviteLink(st *session.State) (string, error) {
	me, err := a.me(st)
	if err != nil {
		return "", err
	}
	if me.Number == "" {
		return "", apperr.New(apperr.InvalidInput, "app.invite", "set your number first")
	}
	return InviteScheme + me.Number, nil
}

// ParseInvite extracts the number from an invite link. Plain numbers pass
// through.
func ParseInvite(link string) string {
	return strings.TrimPrefix(strings.TrimSpace(link), InviteScheme)
}
