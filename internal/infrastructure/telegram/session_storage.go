package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/session"

	"github.com/Conte777/ChatSentinel/internal/domain"
)

// CredentialSessionStorage implements session.Storage for one user
// on top of the credential store
type CredentialSessionStorage struct {
	store  domain.CredentialStore
	userID int64
}

// NewCredentialSessionStorage creates a session storage bound to one user
func NewCredentialSessionStorage(store domain.CredentialStore, userID int64) *CredentialSessionStorage {
	return &CredentialSessionStorage{
		store:  store,
		userID: userID,
	}
}

// LoadSession loads session data from the credential store
func (s *CredentialSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.store.Get(ctx, s.userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if len(data) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

// StoreSession stores session data to the credential store
func (s *CredentialSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if err := s.store.Save(ctx, s.userID, data); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Ensure CredentialSessionStorage implements session.Storage interface
var _ session.Storage = (*CredentialSessionStorage)(nil)
