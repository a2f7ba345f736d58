package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// BadgeRepo manages the append-only badge awards.  The same badge may be
// awarded to a user any number of times; there is deliberately no
// uniqueness constraint.
type BadgeRepo struct {
	Store *store.Store
	DB    *sql.DB
}

func NewBadgeRepo(s *store.Store, db *sql.DB) *BadgeRepo {
	return &BadgeRepo{Store: s, DB: db}
}

// ListByUser returns a user's badges, most recently earned first.
func (r *BadgeRepo) ListByUser(ctx context.Context, userID uint64) ([]store.Record, error) {
	return r.Store.Select(ctx, "badges", store.Filters{"user_id": userID}, "-earned_at", 0)
}

// Award appends one badge row and returns its id.
func (r *BadgeRepo) Award(ctx context.Context, userID uint64, name, badgeType string) (uint64, error) {
	rec, err := r.Store.Insert(ctx, "badges", store.Record{
		"user_id":    userID,
		"badge_name": name,
		"badge_type": badgeType,
		"earned_at":  time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	return asUint64(rec["id"]), nil
}

// CountForUser returns the badge total for the admin listing.
func (r *BadgeRepo) CountForUser(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM badges WHERE user_id = ?", userID).Scan(&n)
	return n, err
}
