package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// User mirrors the 'users' table.
type User struct {
	ID            uint64
	Name          string
	Email         string
	PasswordHash  string // empty means no credential; login must be rejected
	Role          string
	IsActive      bool
	EmailVerified bool
	TotalScore    int
	CurrentStreak int
	LastLogin     any // store-native timestamp, may be nil
	CreatedAt     any
}

type UserRepo struct{ Store *store.Store }

func NewUserRepo(s *store.Store) *UserRepo { return &UserRepo{Store: s} }

func userFromRecord(r store.Record) User {
	return User{
		ID:            asUint64(r["id"]),
		Name:          asString(r["name"]),
		Email:         asString(r["email"]),
		PasswordHash:  asString(r["password_hash"]),
		Role:          asString(r["role"]),
		IsActive:      asBool(r["is_active"]),
		EmailVerified: asBool(r["email_verified"]),
		TotalScore:    asInt(r["total_score"]),
		CurrentStreak: asInt(r["current_streak"]),
		LastLogin:     r["last_login"],
		CreatedAt:     r["created_at"],
	}
}

// isDup recognizes MySQL duplicate-key failures (error 1062).
func isDup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// Create inserts a user row and returns its id.  Duplicate-key failures are
// translated to the same conflict errors as the explicit pre-checks, so a
// registration race still surfaces as "already exists".
func (r *UserRepo) Create(ctx context.Context, u User) (uint64, error) {
	rec := store.Record{
		"name":           u.Name,
		"email":          strings.ToLower(strings.TrimSpace(u.Email)),
		"role":           u.Role,
		"is_active":      u.IsActive,
		"email_verified": u.EmailVerified,
		"total_score":    u.TotalScore,
		"current_streak": u.CurrentStreak,
		"created_at":     time.Now().UTC(),
	}
	if u.PasswordHash != "" {
		rec["password_hash"] = u.PasswordHash
	}
	out, err := r.Store.Insert(ctx, "users", rec)
	if err != nil {
		if isDup(err) {
			if strings.Contains(err.Error(), "uq_users_name") {
				return 0, ErrNameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return asUint64(out["id"]), nil
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (User, error) {
	recs, err := r.Store.Select(ctx, "users", store.Filters{"id": id}, "", 1)
	if err != nil {
		return User{}, err
	}
	rec, ok := first(recs)
	if !ok {
		return User{}, ErrNotFound
	}
	return userFromRecord(rec), nil
}

// FindByEmailOrName resolves a login identifier: email match first, then
// username.  Matching is case-insensitive on both columns.
func (r *UserRepo) FindByEmailOrName(ctx context.Context, ident string) (User, error) {
	ident = strings.TrimSpace(ident)
	recs, err := r.Store.Select(ctx, "users", store.Filters{"email": strings.ToLower(ident)}, "", 1)
	if err != nil {
		return User{}, err
	}
	if rec, ok := first(recs); ok {
		return userFromRecord(rec), nil
	}
	recs, err = r.Store.Select(ctx, "users", store.Filters{"name": ident}, "", 1)
	if err != nil {
		return User{}, err
	}
	rec, ok := first(recs)
	if !ok {
		return User{}, ErrNotFound
	}
	return userFromRecord(rec), nil
}

// FindActiveAdmin resolves an admin-login identifier among active admin
// accounts only.
func (r *UserRepo) FindActiveAdmin(ctx context.Context, ident string) (User, error) {
	ident = strings.TrimSpace(ident)
	for _, col := range []string{"email", "name"} {
		val := ident
		if col == "email" {
			val = strings.ToLower(ident)
		}
		recs, err := r.Store.Select(ctx, "users",
			store.Filters{col: val, "role": "admin", "is_active": true}, "", 1)
		if err != nil {
			return User{}, err
		}
		if rec, ok := first(recs); ok {
			return userFromRecord(rec), nil
		}
	}
	return User{}, ErrNotFound
}

// EmailTaken and NameTaken implement the explicit duplicate pre-checks.
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	recs, err := r.Store.Select(ctx, "users", store.Filters{"email": strings.ToLower(email)}, "", 1)
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

func (r *UserRepo) NameTaken(ctx context.Context, name string) (bool, error) {
	recs, err := r.Store.Select(ctx, "users", store.Filters{"name": name}, "", 1)
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// List returns users newest first.
func (r *UserRepo) List(ctx context.Context, limit int) ([]store.Record, error) {
	return r.Store.Select(ctx, "users", nil, "-created_at", limit)
}

// SetRole persists a role change.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	_, err := r.Store.Update(ctx, "users", store.Record{"role": role}, store.Filters{"id": id})
	return err
}

// TouchLastLogin stamps the user's last login.  Callers treat a failure
// here as non-fatal; a login should not fail because the stamp did.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	_, err := r.Store.Update(ctx, "users", store.Record{"last_login": time.Now().UTC()}, store.Filters{"id": id})
	return err
}

// UpdateFields applies an already-whitelisted patch to a user row.
func (r *UserRepo) UpdateFields(ctx context.Context, id uint64, patch store.Record) error {
	if len(patch) == 0 {
		return nil
	}
	_, err := r.Store.Update(ctx, "users", patch, store.Filters{"id": id})
	if isDup(err) {
		if strings.Contains(err.Error(), "uq_users_name") {
			return ErrNameExists
		}
		return ErrEmailExists
	}
	return err
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	n, err := r.Store.Delete(ctx, "users", store.Filters{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
