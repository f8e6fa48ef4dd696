package app

import (
	"context"

	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/status"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// track marks st busy for the duration of a flow. The returned func clears
// the busy mark and, when *errp is set, records the user-facing message.
func (a *App) track(st *session.State, what string, errp *error) func() {
	done := st.Begin()
	return func() {
		done()
		if err := *errp; err != nil {
			st.SetError(apperr.Message(err))
			a.Logger.Warn(what+" failed",
				zap.String("kind", apperr.KindOf(err).String()),
				zap.Error(err),
			)
		}
	}
}

func (a *App) me(st *session.State) (store.User, error) {
	u, ok := st.User()
	if !ok {
		return store.User{}, apperr.New(apperr.Unauthenticated, "app", "")
	}
	return u, nil
}

// chatOf returns the signed-in user after checking they take part in chatID.
func (a *App) chatOf(ctx context.Context, st *session.State, chatID string) (store.User, error) {
	me, err := a.me(st)
	if err != nil {
		return store.User{}, err
	}
	c, err := a.Contacts.Get(ctx, chatID)
	if err != nil {
		return store.User{}, err
	}
	if !c.Has(me.UserID) {
		return store.User{}, apperr.New(apperr.NotFound, "app.chat", "chat not found")
	}
	return me, nil
}

// profile resolves userID, creating an empty profile when none exists.
func (a *App) profile(ctx context.Context, userID string) (store.User, error) {
	u, found, err := a.Directory.Resolve(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if found {
		return u, nil
	}
	return a.Directory.Upsert(ctx, userID, directory.Patch{})
}

// attach records u on st and reopens the chat list and feed subscriptions so
// they follow the latest identity.
func (a *App) attach(st *session.State, u store.User) {
	st.SetUser(u)
	st.ReplaceChats(a.Contacts.Watch(u.UserID, healthy(a, st.SetChats), a.onError(st, "chats")))
	st.ReplaceFeed(a.Statuses.SubscribeFeed(u.UserID, healthy(a, st.SetFeed), a.onError(st, "feed")))
	a.Logger.Info("session attached", zap.String("user_id", u.UserID))
}

// signOutLocal drops a previous sign-in held by st before a new one.
func (a *App) signOutLocal(st *session.State) {
	if _, ok := st.User(); !ok {
		return
	}
	st.Reset()
	a.lifecycle(status.SignedOut)
}

func (a *App) lifecycle(to status.State) {
	if a.Machine == nil || a.Machine.Current() == to {
		return
	}
	if err := a.Machine.Transition(to); err != nil {
		a.Logger.Debug("lifecycle transition skipped", zap.Error(err))
	}
}

func (a *App) onError(st *session.State, what string) func(error) {
	return func(err error) {
		st.SetError(apperr.Message(err))
		a.Logger.Warn(what+" subscription error", zap.Error(err))
		if apperr.KindOf(err) == apperr.BackingStore && a.Machine != nil {
			a.Machine.TransitionIf(status.Ready, status.Degraded)
		}
	}
}

// healthy wraps a snapshot callback so a delivery lifts DEGRADED.
func healthy[T any](a *App, fn func(T)) func(T) {
	return func(v T) {
		if a.Machine != nil {
			a.Machine.TransitionIf(status.Degraded, status.Ready)
		}
		fn(v)
	}
}
