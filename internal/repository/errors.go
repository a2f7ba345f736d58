// Package repository defines typed access to the platform's tables on top
// of the generic record store.  Sentinel errors let handlers map failure
// scenarios to specific HTTP responses without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced user or record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists and ErrNameExists report registration identity conflicts.
// They are raised both by the explicit pre-checks and by translation of the
// store's duplicate-key failures, which close the check-then-insert race.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrNameExists  = errors.New("username already exists")
)

// ErrCodeInvalid covers a wrong, already-used or unknown verification code;
// ErrCodeExpired covers one that existed but outlived its window.  Handlers
// present both as "invalid or expired".
var (
	ErrCodeInvalid = errors.New("verification code invalid")
	ErrCodeExpired = errors.New("verification code expired")
)
