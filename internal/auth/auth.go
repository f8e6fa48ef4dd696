// Package auth is the email/password authentication provider. It keeps
// argon2id credentials in the backing store, remembers the signed-in user of
// each session and issues access tokens for the HTTP gateway.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// Provider authenticates users for one session.
type Provider struct {
	db      *store.DB
	session string
	params  HashParams
	tokens  *Tokens
	retry   retry.Policy
	logger  *zap.Logger
}

// Options configures a Provider.
type Options struct {
	Session  string
	Secret   string
	TokenTTL time.Duration
	Hash     HashParams
}

// New creates a provider for opts.Session.
func New(db *store.DB, opts Options, policy retry.Policy, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Hash == (HashParams{}) {
		opts.Hash = DefaultHashParams()
	}
	return &Provider{
		db:      db,
		session: opts.Session,
		params:  opts.Hash,
		tokens:  NewTokens(opts.Secret, opts.TokenTTL),
		retry:   policy,
		logger:  logger,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account and signs the session in as the new user.
func (p *Provider) SignUp(ctx context.Context, email, password string) (string, error) {
	const op = "auth.signup"
	email = NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return "", apperr.New(apperr.InvalidInput, op, "invalid email")
	}
	if len(password) < MinPasswordLen {
		return "", apperr.Newf(apperr.InvalidInput, op, "password must have at least %d characters", MinPasswordLen)
	}

	hash, err := HashPassword(password, p.params)
	if err != nil {
		return "", apperr.Wrap(apperr.Unknown, op, err)
	}
	cred := store.Credential{
		Email:        email,
		UserID:       uuid.NewString(),
		PasswordHash: hash,
		CreatedAt:    time.Now().UnixMilli(),
	}
	err = p.retry.Do(ctx, op, func(ctx context.Context) error {
		return p.db.InsertCredential(ctx, &cred)
	})
	if errors.Is(err, store.ErrConflict) {
		return "", apperr.New(apperr.AlreadyExists, op, "email already registered")
	}
	if err != nil {
		return "", apperr.Store(op, err)
	}

	if err := p.setCurrent(ctx, cred.UserID); err != nil {
		return "", err
	}
	p.logger.Info("account created", zap.String("user_id", cred.UserID))
	return cred.UserID, nil
}

// SignIn checks the credentials and signs the session in.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	const op = "auth.signin"
	email = NormalizeEmail(email)
	cred, err := retry.Value(ctx, p.retry, op, func(ctx context.Context) (*store.Credential, error) {
		return p.db.GetCredential(ctx, email)
	})
	if err != nil {
		return "", apperr.Store(op, err)
	}
	if cred == nil {
		return "", apperr.New(apperr.InvalidInput, op, "invalid credentials")
	}
	ok, err := CheckPassword(password, cred.PasswordHash)
	if err != nil {
		p.logger.Error("stored password hash unreadable", zap.String("user_id", cred.UserID), zap.Error(err))
	}
	if !ok {
		return "", apperr.New(apperr.InvalidInput, op, "invalid credentials")
	}

	if err := p.setCurrent(ctx, cred.UserID); err != nil {
		return "", err
	}
	p.logger.Info("signed in", zap.String("user_id", cred.UserID))
	return cred.UserID, nil
}

// CurrentUser returns the session's signed-in user.
func (p *Provider) CurrentUser(ctx context.Context) (string, bool, error) {
	var (
		id string
		ok bool
	)
	err := p.retry.Do(ctx, "auth.current_user", func(ctx context.Context) error {
		var err error
		id, ok, err = p.db.GetSessionValue(ctx, p.key())
		return err
	})
	if err != nil {
		return "", false, apperr.Store("auth.current_user", err)
	}
	return id, ok && id != "", nil
}

// SignOut forgets the session's signed-in user.
func (p *Provider) SignOut(ctx context.Context) error {
	err := p.retry.Do(ctx, "auth.signout", func(ctx context.Context) error {
		return p.db.DeleteSessionValue(ctx, p.key())
	})
	if err != nil {
		return apperr.Store("auth.signout", err)
	}
	p.logger.Info("signed out")
	return nil
}

// IssueToken returns an access token for userID.
func (p *Provider) IssueToken(userID string) (string, error) {
	return p.tokens.Issue(userID)
}

// ParseToken verifies token and returns the user it was issued for.
func (p *Provider) ParseToken(token string) (string, error) {
	c, err := p.tokens.Parse(token)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

func (p *Provider) setCurrent(ctx context.Context, userID string) error {
	err := p.retry.Do(ctx, "auth.set_current", func(ctx context.Context) error {
		return p.db.SetSessionValue(ctx, p.key(), userID)
	})
	return apperr.Store("auth.set_current", err)
}

func (p *Provider) key() string {
	return p.session + ".current_user"
}
