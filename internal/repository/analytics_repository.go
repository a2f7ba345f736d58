package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// AnalyticsRepo computes the aggregate statistics behind the admin
// dashboard.  Everything here is plain GROUP BY / COUNT / AVG SQL pushed
// down to the store.
type AnalyticsRepo struct{ DB *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{DB: db} }

type RoomStat struct {
	RoomName    string  `json:"room_name"`
	AccessCount int     `json:"access_count"`
	AvgProgress float64 `json:"avg_progress"`
}

type CompletionStat struct {
	RoomName       string  `json:"room_name"`
	TotalAttempts  int     `json:"total_attempts"`
	CompletedCount int     `json:"completed_count"`
	CompletionRate float64 `json:"completion_rate"`
}

type UserStats struct {
	TotalUsers  int     `json:"total_users"`
	NewUsers    int     `json:"new_users"`
	ActiveUsers int     `json:"active_users"`
	AvgProgress float64 `json:"avg_progress"`
}

type BadgeStats struct {
	TotalBadges int `json:"total_badges"`
}

type Overview struct {
	TimeframeDays   int              `json:"timeframe_days"`
	UserStats       UserStats        `json:"user_stats"`
	PopularRooms    []RoomStat       `json:"popular_rooms"`
	BadgeStats      BadgeStats       `json:"badge_stats"`
	CompletionRates []CompletionStat `json:"completion_rates"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Overview aggregates user, room, badge and completion statistics for
// activity after the since threshold.
func (r *AnalyticsRepo) Overview(ctx context.Context, since time.Time, timeframeDays int) (Overview, error) {
	ov := Overview{
		TimeframeDays:   timeframeDays,
		PopularRooms:    []RoomStat{},
		CompletionRates: []CompletionStat{},
		GeneratedAt:     time.Now().UTC(),
	}

	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&ov.UserStats.TotalUsers); err != nil {
		return ov, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE created_at > ?", since).Scan(&ov.UserStats.NewUsers); err != nil {
		return ov, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT user_id) FROM user_progress WHERE last_accessed > ?", since).Scan(&ov.UserStats.ActiveUsers); err != nil {
		return ov, err
	}
	var avg float64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(progress_percentage), 0) FROM user_progress").Scan(&avg); err != nil {
		return ov, err
	}
	ov.UserStats.AvgProgress = round1(avg)

	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM badges WHERE earned_at > ?", since).Scan(&ov.BadgeStats.TotalBadges); err != nil {
		return ov, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT room_name, COUNT(*), COALESCE(AVG(progress_percentage), 0), SUM(completed)
		 FROM user_progress WHERE last_accessed > ?
		 GROUP BY room_name ORDER BY COUNT(*) DESC`, since)
	if err != nil {
		return ov, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			room      string
			accesses  int
			roomAvg   float64
			completed int
		)
		if err := rows.Scan(&room, &accesses, &roomAvg, &completed); err != nil {
			return ov, err
		}
		if len(ov.PopularRooms) < 5 {
			ov.PopularRooms = append(ov.PopularRooms, RoomStat{
				RoomName:    room,
				AccessCount: accesses,
				AvgProgress: round1(roomAvg),
			})
		}
		rate := 0.0
		if accesses > 0 {
			rate = float64(completed) / float64(accesses) * 100
		}
		ov.CompletionRates = append(ov.CompletionRates, CompletionStat{
			RoomName:       room,
			TotalAttempts:  accesses,
			CompletedCount: completed,
			CompletionRate: round2(rate),
		})
	}
	if err := rows.Err(); err != nil {
		return ov, err
	}

	// Completion rates sorted best-first.
	sort.Slice(ov.CompletionRates, func(i, j int) bool {
		return ov.CompletionRates[i].CompletionRate > ov.CompletionRates[j].CompletionRate
	})
	return ov, nil
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }

type Activity struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	User        string `json:"user"`
}

type LiveStats struct {
	OnlineUsers    int `json:"online_users"`
	ActiveSessions int `json:"active_sessions"`
	RoomsInUse     int `json:"rooms_in_use"`
}

// RecentRegistrations lists users created after since, newest first.
func (r *AnalyticsRepo) RecentRegistrations(ctx context.Context, since time.Time, limit int) ([]Activity, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT name, created_at FROM users WHERE created_at > ? ORDER BY created_at DESC LIMIT ?",
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			name string
			at   time.Time
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, err
		}
		out = append(out, Activity{
			Type:        "user_registered",
			Description: name + " joined the platform",
			Timestamp:   at.UTC().Format(time.RFC3339),
			User:        name,
		})
	}
	return out, rows.Err()
}

// RecentProgress lists progress updates after since, newest first.
func (r *AnalyticsRepo) RecentProgress(ctx context.Context, since time.Time, limit int) ([]Activity, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT COALESCE(u.name, 'Unknown'), p.room_name, p.progress_percentage, p.last_accessed
		 FROM user_progress p LEFT JOIN users u ON u.id = p.user_id
		 WHERE p.last_accessed > ? ORDER BY p.last_accessed DESC LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			name string
			room string
			pct  int
			at   time.Time
		)
		if err := rows.Scan(&name, &room, &pct, &at); err != nil {
			return nil, err
		}
		out = append(out, Activity{
			Type:        "progress_updated",
			Description: formatProgressActivity(name, room, pct),
			Timestamp:   at.UTC().Format(time.RFC3339),
			User:        name,
		})
	}
	return out, rows.Err()
}

// RecentBadges lists badge awards after since, newest first.
func (r *AnalyticsRepo) RecentBadges(ctx context.Context, since time.Time, limit int) ([]Activity, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT COALESCE(u.name, 'Unknown'), b.badge_name, b.earned_at
		 FROM badges b LEFT JOIN users u ON u.id = b.user_id
		 WHERE b.earned_at > ? ORDER BY b.earned_at DESC LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			name  string
			badge string
			at    time.Time
		)
		if err := rows.Scan(&name, &badge, &at); err != nil {
			return nil, err
		}
		out = append(out, Activity{
			Type:        "badge_earned",
			Description: name + " earned '" + badge + "' badge",
			Timestamp:   at.UTC().Format(time.RFC3339),
			User:        name,
		})
	}
	return out, rows.Err()
}

// LiveStats derives current-hour usage from the progress table.
func (r *AnalyticsRepo) LiveStats(ctx context.Context, since time.Time) (LiveStats, error) {
	var ls LiveStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id), COUNT(DISTINCT room_name)
		 FROM user_progress WHERE last_accessed > ?`, since).
		Scan(&ls.OnlineUsers, &ls.RoomsInUse)
	if err != nil {
		return ls, err
	}
	ls.ActiveSessions = ls.OnlineUsers
	return ls, nil
}

type ProgressSummaryRow struct {
	ID                 uint64 `json:"id"`
	UserID             uint64 `json:"user_id"`
	UserName           string `json:"user_name"`
	RoomName           string `json:"room_name"`
	ProgressPercentage int    `json:"progress_percentage"`
	Completed          bool   `json:"completed"`
	LastAccessed       string `json:"last_accessed"`
}

// ProgressSummary returns every progress row joined with its user name.
func (r *AnalyticsRepo) ProgressSummary(ctx context.Context) ([]ProgressSummaryRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.user_id, COALESCE(u.name, ''), p.room_name, p.progress_percentage, p.completed, p.last_accessed
		 FROM user_progress p LEFT JOIN users u ON u.id = p.user_id
		 ORDER BY p.last_accessed DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ProgressSummaryRow{}
	for rows.Next() {
		var (
			row ProgressSummaryRow
			at  time.Time
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.UserName, &row.RoomName,
			&row.ProgressPercentage, &row.Completed, &at); err != nil {
			return nil, err
		}
		row.LastAccessed = at.UTC().Format(time.RFC3339)
		out = append(out, row)
	}
	return out, rows.Err()
}

type BadgeSummaryRow struct {
	ID        uint64 `json:"id"`
	UserID    uint64 `json:"user_id"`
	UserName  string `json:"user_name"`
	BadgeName string `json:"badge_name"`
	BadgeType string `json:"badge_type"`
	EarnedAt  string `json:"earned_at"`
}

// BadgesSummary returns every badge row joined with its user name.
func (r *AnalyticsRepo) BadgesSummary(ctx context.Context) ([]BadgeSummaryRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, b.user_id, COALESCE(u.name, ''), b.badge_name, b.badge_type, b.earned_at
		 FROM badges b LEFT JOIN users u ON u.id = b.user_id
		 ORDER BY b.earned_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BadgeSummaryRow{}
	for rows.Next() {
		var (
			row BadgeSummaryRow
			at  time.Time
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.UserName, &row.BadgeName, &row.BadgeType, &at); err != nil {
			return nil, err
		}
		row.EarnedAt = at.UTC().Format(time.RFC3339)
		out = append(out, row)
	}
	return out, rows.Err()
}

func formatProgressActivity(name, room string, pct int) string {
	return fmt.Sprintf("%s made progress in %s (%d%%)", name, room, pct)
}
