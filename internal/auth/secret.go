package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/matheus3301/lcchat/internal/store"
)

// SecretKey is where the shared token signing secret is kept.
const SecretKey = "gateway.jwt_secret"

// SharedSecret returns the signing secret every daemon on the backing store
// agrees on, generating it on first use.
func SharedSecret(ctx context.Context, db *store.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	secret, err := db.InitSessionValue(ctx, SecretKey, hex.EncodeToString(buf))
	if err != nil {
		return "", fmt.Errorf("store secret: %w", err)
	}
	return secret, nil
}
