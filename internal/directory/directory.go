// Package directory maps authenticated user ids to profiles.
package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// Patch carries the profile fields to change. Nil fields are left untouched.
type Patch struct {
	Name     *string
	Number   *string
	ImageURL *string
}

// Directory is the session directory over the backing store.
type Directory struct {
	db     *store.DB
	bus    *bus.Bus
	retry  retry.Policy
	logger *zap.Logger
}

// New creates a directory.
func New(db *store.DB, b *bus.Bus, policy retry.Policy, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{db: db, bus: b, retry: policy, logger: logger}
}

// Resolve returns the profile for userID. found is false for a user without a
// profile yet, which callers treat as "create one".
func (d *Directory) Resolve(ctx context.Context, userID string) (u store.User, found bool, err error) {
	if strings.TrimSpace(userID) == "" {
		return store.User{}, false, apperr.New(apperr.InvalidInput, "directory.resolve", "user id is required")
	}
	got, err := retry.Value(ctx, d.retry, "directory.resolve", func(ctx context.Context) (*store.User, error) {
		return d.db.GetUser(ctx, userID)
	})
	if err != nil {
		return store.User{}, false, apperr.Store("directory.resolve", err)
	}
	if got == nil {
		return store.User{}, false, nil
	}
	return *got, true, nil
}

// LookupByNumber returns the profile that owns number.
func (d *Directory) LookupByNumber(ctx context.Context, number string) (u store.User, found bool, err error) {
	got, err := retry.Value(ctx, d.retry, "directory.lookup_number", func(ctx context.Context) (*store.User, error) {
		return d.db.GetUserByNumber(ctx, number)
	})
	if err != nil {
		return store.User{}, false, apperr.Store("directory.lookup_number", err)
	}
	if got == nil {
		return store.User{}, false, nil
	}
	return *got, true, nil
}

// Upsert creates or merges the profile for userID. Repeating an upsert with
// the same patch yields the same profile.
func (d *Directory) Upsert(ctx context.Context, userID string, p Patch) (store.User, error) {
	const op = "directory.upsert"
	if strings.TrimSpace(userID) == "" {
		return store.User{}, apperr.New(apperr.InvalidInput, op, "user id is required")
	}
	if p.Number != nil && *p.Number != "" && !ValidNumber(*p.Number) {
		return store.User{}, apperr.New(apperr.InvalidInput, op, "number must contain digits only")
	}

	before, _, err := d.Resolve(ctx, userID)
	if err != nil {
		return store.User{}, err
	}

	got, err := retry.Value(ctx, d.retry, op, func(ctx context.Context) (*store.User, error) {
		return d.db.MergeUser(ctx, userID, store.UserPatch{Name: p.Name, Number: p.Number, ImageURL: p.ImageURL})
	})
	if errors.Is(err, store.ErrConflict) {
		return store.User{}, apperr.New(apperr.AlreadyExists, op, "number already exists")
	}
	if err != nil {
		return store.User{}, apperr.Store(op, err)
	}

	if *got != before {
		d.logger.Info("identity updated", zap.String("user_id", userID))
		d.bus.Notify(bus.KindUsers)
		d.bus.Publish(bus.Event{Kind: bus.KindIdentity, Timestamp: time.Now(), Payload: *got})
	}
	return *got, nil
}

// ValidNumber reports whether s is a non-empty string of ASCII digits.
func ValidNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
