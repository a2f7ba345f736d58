package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// ProgressRepo manages per-(user, room) progress rows.  The unique key on
// (user_id, room_name) makes the upsert replace-not-append and closes the
// concurrent-update race at the store, so it uses direct SQL rather than
// the generic layer's separate select-then-write steps.
type ProgressRepo struct {
	Store *store.Store
	DB    *sql.DB
}

func NewProgressRepo(s *store.Store, db *sql.DB) *ProgressRepo {
	return &ProgressRepo{Store: s, DB: db}
}

// ListByUser returns a user's progress rows, most recently accessed first.
func (r *ProgressRepo) ListByUser(ctx context.Context, userID uint64) ([]store.Record, error) {
	return r.Store.Select(ctx, "user_progress", store.Filters{"user_id": userID}, "-last_accessed", 0)
}

// Upsert records progress for a (user, room) pair, replacing the existing
// row if one exists.  It reports whether a new row was created.
func (r *ProgressRepo) Upsert(ctx context.Context, userID uint64, room string, percentage int, completed bool) (bool, error) {
	// MySQL reports 1 affected row for an insert, 2 for a replaced row.
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, room_name, progress_percentage, completed, last_accessed)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   progress_percentage = VALUES(progress_percentage),
		   completed = VALUES(completed),
		   last_accessed = VALUES(last_accessed)`,
		userID, room, percentage, completed, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// StatsForUser returns the number of progress rows and their average
// percentage for one user, for the admin listing.
func (r *ProgressRepo) StatsForUser(ctx context.Context, userID uint64) (count int, avg float64, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(AVG(progress_percentage), 0) FROM user_progress WHERE user_id = ?",
		userID).Scan(&count, &avg)
	return count, avg, err
}
