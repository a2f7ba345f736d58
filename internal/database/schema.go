package database

// schema.go holds the fixed, versioned schema and the one-time startup
// migration.  Earlier deployments of this platform evolved their users table
// independently, so some installations lack the credential and scoring
// columns.  Instead of probing the live column set on every request, Migrate
// inspects it once at boot and brings drifted tables up to the full schema.

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/ascendedtech/techlab-server/internal/store"
)

// SchemaVersion identifies the column layout Migrate converges on.
const SchemaVersion = 3

var createTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		email_verified TINYINT(1) NOT NULL DEFAULT 0,
		total_score INT NOT NULL DEFAULT 0,
		current_streak INT NOT NULL DEFAULT 0,
		last_login DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_name (name),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pending_registrations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		verification_code VARCHAR(6) NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_pending_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS verification_codes (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		code VARCHAR(6) NOT NULL,
		used TINYINT(1) NOT NULL DEFAULT 0,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_codes_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admin_sessions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		session_token VARCHAR(64) NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_sessions_token (session_token),
		KEY idx_sessions_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admin_actions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		admin_user_id BIGINT UNSIGNED NOT NULL,
		action_type VARCHAR(32) NOT NULL,
		target_user_id BIGINT UNSIGNED NULL,
		description TEXT,
		ip_address VARCHAR(45),
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_progress (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		room_name VARCHAR(128) NOT NULL,
		progress_percentage INT NOT NULL DEFAULT 0,
		completed TINYINT(1) NOT NULL DEFAULT 0,
		last_accessed DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_progress_user_room (user_id, room_name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS badges (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		badge_name VARCHAR(128) NOT NULL,
		badge_type VARCHAR(32) NOT NULL DEFAULT 'achievement',
		earned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_badges_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// userUpgrades maps columns that older users tables are missing to the DDL
// that adds them.  Defaults keep every field non-optional going forward.
var userUpgrades = map[string]string{
	"password_hash":  "ALTER TABLE users ADD COLUMN password_hash VARCHAR(255) NULL",
	"role":           "ALTER TABLE users ADD COLUMN role VARCHAR(16) NOT NULL DEFAULT 'user'",
	"is_active":      "ALTER TABLE users ADD COLUMN is_active TINYINT(1) NOT NULL DEFAULT 1",
	"email_verified": "ALTER TABLE users ADD COLUMN email_verified TINYINT(1) NOT NULL DEFAULT 0",
	"total_score":    "ALTER TABLE users ADD COLUMN total_score INT NOT NULL DEFAULT 0",
	"current_streak": "ALTER TABLE users ADD COLUMN current_streak INT NOT NULL DEFAULT 0",
	"last_login":     "ALTER TABLE users ADD COLUMN last_login DATETIME NULL",
}

// Migrate creates any missing tables and upgrades a drifted users table to
// the current layout.  It runs exactly once, at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range createTables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("schema create: %w", err)
		}
	}

	st := store.New(db)
	cols, err := st.Columns(ctx, "users")
	if err != nil {
		return fmt.Errorf("schema inspect users: %w", err)
	}
	for col, ddl := range userUpgrades {
		if cols[col] {
			continue
		}
		log.Printf("schema: users table missing %q, adding", col)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("schema upgrade users.%s: %w", col, err)
		}
	}
	return nil
}
