package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/crypto"
)

// Encrypted seals tokens before handing them to the inner store.
type Encrypted struct {
	inner  domain.TokenStore
	crypto crypto.Service
}

var _ domain.TokenStore = (*Encrypted)(nil)

func NewEncrypted(inner domain.TokenStore, svc crypto.Service) *Encrypted {
	return &Encrypted{inner: inner, crypto: svc}
}

// Load decrypts the stored token. A plaintext token written before encryption
// was enabled is returned as is and re-saved sealed.
func (e *Encrypted) Load(ctx context.Context) (string, error) {
	stored, err := e.inner.Load(ctx)
	if err != nil || stored == "" {
		return stored, err
	}

	token, err := e.crypto.Decrypt(stored)
	if errors.Is(err, crypto.ErrNotSealed) {
		if err := e.Save(ctx, stored); err != nil {
			slog.WarnContext(ctx, "Failed to re-seal plaintext token", "error", err)
		}
		return stored, nil
	}
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return token, nil
}

func (e *Encrypted) Save(ctx context.Context, token string) error {
	sealed, err := e.crypto.Encrypt(token)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	return e.inner.Save(ctx, sealed)
}

func (e *Encrypted) Delete(ctx context.Context) error {
	return e.inner.Delete(ctx)
}
