package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// CodeTTL bounds both verification codes and pending registrations.
const CodeTTL = 15 * time.Minute

// PendingRegistration is the transient staging record between the register
// and verify steps.  One row per email; re-registering supersedes it.
type PendingRegistration struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Code         string
	ExpiresAt    any // store-native timestamp; compared via store.Expired
}

type VerificationRepo struct{ Store *store.Store }

func NewVerificationRepo(s *store.Store) *VerificationRepo { return &VerificationRepo{Store: s} }

// IssueCode records a fresh verification code for an email, deleting any
// prior codes first so at most one unused, unexpired code is meaningful.
func (r *VerificationRepo) IssueCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := r.Store.Delete(ctx, "verification_codes", store.Filters{"email": email}); err != nil {
		return err
	}
	_, err := r.Store.Insert(ctx, "verification_codes", store.Record{
		"email":      email,
		"code":       code,
		"used":       false,
		"expires_at": expiresAt.UTC(),
		"created_at": time.Now().UTC(),
	})
	return err
}

// ConsumeCode validates and consumes a verification code.  The code is
// marked used whether it turns out valid or expired, so it can never be
// replayed.  A wrong or already-used code yields ErrCodeInvalid.
func (r *VerificationRepo) ConsumeCode(ctx context.Context, email, code string, now time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	recs, err := r.Store.Select(ctx, "verification_codes",
		store.Filters{"email": email, "code": code, "used": false}, "", 1)
	if err != nil {
		return err
	}
	rec, ok := first(recs)
	if !ok {
		return ErrCodeInvalid
	}

	// Consume first: even an expired code must never be checked twice.
	if _, err := r.Store.Update(ctx, "verification_codes",
		store.Record{"used": true}, store.Filters{"id": rec["id"]}); err != nil {
		return err
	}

	expired, err := store.Expired(rec["expires_at"], now)
	if err != nil || expired {
		return ErrCodeExpired
	}
	return nil
}

// UpsertPending stages registration data for an email, superseding any
// earlier attempt for the same address.
func (r *VerificationRepo) UpsertPending(ctx context.Context, p PendingRegistration, expiresAt time.Time) error {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if _, err := r.Store.Delete(ctx, "pending_registrations", store.Filters{"email": email}); err != nil {
		return err
	}
	_, err := r.Store.Insert(ctx, "pending_registrations", store.Record{
		"username":          p.Username,
		"email":             email,
		"password_hash":     p.PasswordHash,
		"verification_code": p.Code,
		"expires_at":        expiresAt.UTC(),
		"created_at":        time.Now().UTC(),
	})
	return err
}

// FindPending loads the staged registration for an email.
func (r *VerificationRepo) FindPending(ctx context.Context, email string) (PendingRegistration, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	recs, err := r.Store.Select(ctx, "pending_registrations", store.Filters{"email": email}, "", 1)
	if err != nil {
		return PendingRegistration{}, err
	}
	rec, ok := first(recs)
	if !ok {
		return PendingRegistration{}, ErrNotFound
	}
	return PendingRegistration{
		ID:           asUint64(rec["id"]),
		Username:     asString(rec["username"]),
		Email:        asString(rec["email"]),
		PasswordHash: asString(rec["password_hash"]),
		Code:         asString(rec["verification_code"]),
		ExpiresAt:    rec["expires_at"],
	}, nil
}

// RenewPending overwrites the staged code and extends the expiry window,
// used by the resend flow.
func (r *VerificationRepo) RenewPending(ctx context.Context, email, code string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.Store.Update(ctx, "pending_registrations",
		store.Record{"verification_code": code, "expires_at": expiresAt.UTC()},
		store.Filters{"email": email})
	return err
}

// DeletePending removes the staged registration for an email.
func (r *VerificationRepo) DeletePending(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.Store.Delete(ctx, "pending_registrations", store.Filters{"email": email})
	return err
}
