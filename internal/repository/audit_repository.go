package repository

import (
	"context"
	"time"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// AuditRepo appends admin actions to the audit trail.  The table is
// write-only from the application's perspective.
type AuditRepo struct{ Store *store.Store }

func NewAuditRepo(s *store.Store) *AuditRepo { return &AuditRepo{Store: s} }

// Log appends one audit row.  Callers treat failures as non-fatal: an audit
// write must never fail the request that triggered it.
func (r *AuditRepo) Log(ctx context.Context, adminID uint64, actionType, description, ip string, targetUserID *uint64) error {
	rec := store.Record{
		"admin_user_id": adminID,
		"action_type":   actionType,
		"description":   description,
		"ip_address":    ip,
		"timestamp":     time.Now().UTC(),
	}
	if targetUserID != nil {
		rec["target_user_id"] = *targetUserID
	}
	_, err := r.Store.Insert(ctx, "admin_actions", rec)
	return err
}
