package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// SessionStore persists conversation snapshots so that a suspended session can
// be resumed by any worker or process.
type SessionStore interface {
	// Save persists the session under session.ID, replacing any previous snapshot.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the session with the given ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
