// Package signature provides the pseudonymous device identifier.
// The identifier only scopes notification queries; it is not an identity.
package signature

import (
	"context"
	"echoes/contract"
	"echoes/domain"
	"echoes/errors"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const StorageKey = "device-signature"

type Provider struct {
	store contract.IKeyValueStore
	log   *slog.Logger

	mu     sync.Mutex
	cached domain.SignatureID
}

func NewProvider(store contract.IKeyValueStore, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Get returns the persisted signature, generating and storing a random UUID on first use.
func (p *Provider) Get(_ context.Context) (domain.SignatureID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cached.IsZero() {
		return p.cached, nil
	}

	value, err := p.store.Get(StorageKey)
	switch {
	case err == nil && len(value) > 0:
		p.cached = domain.SignatureID(value)
		return p.cached, nil
	case err != nil && !stderrors.Is(err, errors.ErrNotFound):
		return "", fmt.Errorf("%w: %w", errors.ErrSignatureUnavailable, err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrSignatureUnavailable, err)
	}
	if err = p.store.Set(StorageKey, []byte(id.String())); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrSignatureUnavailable, err)
	}
	p.log.Info("Generated new device signature")
	p.cached = domain.SignatureID(id.String())
	return p.cached, nil
}

// Reset forgets the signature. The next Get generates a new one.
func (p *Provider) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = ""
	if err := p.store.Delete(StorageKey); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrSignatureUnavailable, err)
	}
	return nil
}
