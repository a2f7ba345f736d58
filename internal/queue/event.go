// Package queue defines message payloads exchanged over the message broker.
package queue

// UserRegisteredEvent is published when email verification completes and the
// user account materializes.  Downstream consumers (welcome mail, analytics
// warehouses) get enough to act without querying the primary database.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
}

// BadgeEarnedEvent is published when a badge is awarded.
type BadgeEarnedEvent struct {
	BadgeID   uint64 `json:"badge_id"`
	UserID    uint64 `json:"user_id"`
	BadgeName string `json:"badge_name"`
	BadgeType string `json:"badge_type"`
	EarnedAt  string `json:"earned_at"`
}
