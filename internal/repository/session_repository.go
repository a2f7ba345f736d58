package repository

import (
	"context"
	"time"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// SessionTTL is the admin bearer-session lifetime.
const SessionTTL = 8 * time.Hour

// AdminSession binds a user to an opaque bearer token.  Only the token's
// digest is persisted; ExpiresAt stays store-native for the expiry check.
type AdminSession struct {
	ID        uint64
	UserID    uint64
	ExpiresAt any
}

type SessionRepo struct{ Store *store.Store }

func NewSessionRepo(s *store.Store) *SessionRepo { return &SessionRepo{Store: s} }

// Create persists a new active session for a user.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, tokenDigest string, expiresAt time.Time) error {
	_, err := r.Store.Insert(ctx, "admin_sessions", store.Record{
		"user_id":       userID,
		"session_token": tokenDigest,
		"is_active":     true,
		"expires_at":    expiresAt.UTC(),
		"created_at":    time.Now().UTC(),
	})
	return err
}

// FindActive looks up an active session by token digest.  Expiry is the
// caller's concern; the repository only filters the active flag.
func (r *SessionRepo) FindActive(ctx context.Context, tokenDigest string) (AdminSession, error) {
	recs, err := r.Store.Select(ctx, "admin_sessions",
		store.Filters{"session_token": tokenDigest, "is_active": true}, "", 1)
	if err != nil {
		return AdminSession{}, err
	}
	rec, ok := first(recs)
	if !ok {
		return AdminSession{}, ErrNotFound
	}
	return AdminSession{
		ID:        asUint64(rec["id"]),
		UserID:    asUint64(rec["user_id"]),
		ExpiresAt: rec["expires_at"],
	}, nil
}
