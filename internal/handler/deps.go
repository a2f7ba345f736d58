package handler

// deps.go declares the narrow interfaces handlers consume.  The repository
// package provides the production implementations; tests substitute
// in-memory fakes.

import (
	"context"
	"time"

	"github.com/ascendedtech/techlab-server/internal/queue"
	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/store"
)

// UserStore is the user-table surface handlers need.
type UserStore interface {
	Create(ctx context.Context, u repository.User) (uint64, error)
	FindByID(ctx context.Context, id uint64) (repository.User, error)
	FindByEmailOrName(ctx context.Context, ident string) (repository.User, error)
	FindActiveAdmin(ctx context.Context, ident string) (repository.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	NameTaken(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, limit int) ([]store.Record, error)
	SetRole(ctx context.Context, id uint64, role string) error
	TouchLastLogin(ctx context.Context, id uint64) error
	UpdateFields(ctx context.Context, id uint64, patch store.Record) error
	Delete(ctx context.Context, id uint64) error
}

// VerificationStore covers verification codes and pending registrations.
type VerificationStore interface {
	IssueCode(ctx context.Context, email, code string, expiresAt time.Time) error
	ConsumeCode(ctx context.Context, email, code string, now time.Time) error
	UpsertPending(ctx context.Context, p repository.PendingRegistration, expiresAt time.Time) error
	FindPending(ctx context.Context, email string) (repository.PendingRegistration, error)
	RenewPending(ctx context.Context, email, code string, expiresAt time.Time) error
	DeletePending(ctx context.Context, email string) error
}

// SessionStore issues admin sessions.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, tokenDigest string, expiresAt time.Time) error
}

// AuditLogger appends to the admin audit trail.
type AuditLogger interface {
	Log(ctx context.Context, adminID uint64, actionType, description, ip string, targetUserID *uint64) error
}

// ProgressStore covers per-(user, room) progress rows.
type ProgressStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]store.Record, error)
	Upsert(ctx context.Context, userID uint64, room string, percentage int, completed bool) (created bool, err error)
	StatsForUser(ctx context.Context, userID uint64) (count int, avg float64, err error)
}

// BadgeStore covers badge awards.
type BadgeStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]store.Record, error)
	Award(ctx context.Context, userID uint64, name, badgeType string) (uint64, error)
	CountForUser(ctx context.Context, userID uint64) (int, error)
}

// Publisher emits best-effort domain events; a nil Publisher disables them.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error
	PublishBadgeEarned(ctx context.Context, ev queue.BadgeEarnedEvent) error
}
