package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ascendedtech/techlab-server/internal/repository"
)

// overviewCacheTTL bounds how stale the dashboard overview may get.  The
// queries behind it touch every table, so one minute of staleness is a fair
// trade against recomputing them per poll.
const overviewCacheTTL = time.Minute

// AnalyticsStore is the aggregate-query surface the dashboard needs.
type AnalyticsStore interface {
	Overview(ctx context.Context, since time.Time, timeframeDays int) (repository.Overview, error)
	RecentRegistrations(ctx context.Context, since time.Time, limit int) ([]repository.Activity, error)
	RecentProgress(ctx context.Context, since time.Time, limit int) ([]repository.Activity, error)
	RecentBadges(ctx context.Context, since time.Time, limit int) ([]repository.Activity, error)
	LiveStats(ctx context.Context, since time.Time) (repository.LiveStats, error)
	ProgressSummary(ctx context.Context) ([]repository.ProgressSummaryRow, error)
	BadgesSummary(ctx context.Context) ([]repository.BadgeSummaryRow, error)
}

// AnalyticsHandler serves the admin dashboard aggregates.  Cache may be nil;
// every cache failure falls through to the database.
type AnalyticsHandler struct {
	Analytics AnalyticsStore
	Cache     *redis.Client
}

func NewAnalyticsHandler(a AnalyticsStore, cache *redis.Client) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: a, Cache: cache}
}

// Overview answers GET /api/admin/analytics/overview?timeframe=days.
func (h *AnalyticsHandler) Overview(c echo.Context) error {
	days := 30
	if raw := c.QueryParam("timeframe"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid timeframe"})
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cacheKey := fmt.Sprintf("analytics:overview:%d", days)
	if h.Cache != nil {
		if cached, err := h.Cache.Get(ctx, cacheKey).Bytes(); err == nil {
			return c.JSONBlob(http.StatusOK, cached)
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	ov, err := h.Analytics.Overview(ctx, since, days)
	if err != nil {
		return analyticsFailed(c, err)
	}

	if h.Cache != nil {
		if body, err := json.Marshal(ov); err == nil {
			if err := h.Cache.Set(ctx, cacheKey, body, overviewCacheTTL).Err(); err != nil {
				log.Printf("analytics: caching overview: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, ov)
}

// LiveActivity merges the last 24 hours of registrations, progress updates
// and badge awards into one feed, newest first, capped at 20 entries.
func (h *AnalyticsHandler) LiveActivity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)

	activities := []repository.Activity{}
	for _, fetch := range []func(context.Context, time.Time, int) ([]repository.Activity, error){
		h.Analytics.RecentRegistrations,
		h.Analytics.RecentProgress,
		h.Analytics.RecentBadges,
	} {
		batch, err := fetch(ctx, dayAgo, 10)
		if err != nil {
			return analyticsFailed(c, err)
		}
		activities = append(activities, batch...)
	}

	// RFC 3339 timestamps sort correctly as strings.
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp > activities[j].Timestamp
	})
	if len(activities) > 20 {
		activities = activities[:20]
	}

	stats, err := h.Analytics.LiveStats(ctx, now.Add(-time.Hour))
	if err != nil {
		return analyticsFailed(c, err)
	}
	if stats.RoomsInUse < 1 {
		stats.RoomsInUse = 1
	}

	return c.JSON(http.StatusOK, echo.Map{
		"activities": activities,
		"live_stats": stats,
	})
}

// ProgressSummary answers GET /api/admin/progress/summary.
func (h *AnalyticsHandler) ProgressSummary(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Analytics.ProgressSummary(ctx)
	if err != nil {
		return analyticsFailed(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// BadgesSummary answers GET /api/admin/badges/summary.
func (h *AnalyticsHandler) BadgesSummary(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Analytics.BadgesSummary(ctx)
	if err != nil {
		return analyticsFailed(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func analyticsFailed(c echo.Context, err error) error {
	log.Printf("analytics: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to compute analytics"})
}
