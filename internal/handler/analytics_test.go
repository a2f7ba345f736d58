package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascendedtech/techlab-server/internal/repository"
)

type fakeAnalytics struct {
	overview      repository.Overview
	overviewCalls int
	registrations []repository.Activity
	progress      []repository.Activity
	badges        []repository.Activity
	live          repository.LiveStats
}

func (f *fakeAnalytics) Overview(_ context.Context, _ time.Time, days int) (repository.Overview, error) {
	f.overviewCalls++
	ov := f.overview
	ov.TimeframeDays = days
	return ov, nil
}

func (f *fakeAnalytics) RecentRegistrations(_ context.Context, _ time.Time, _ int) ([]repository.Activity, error) {
	return f.registrations, nil
}

func (f *fakeAnalytics) RecentProgress(_ context.Context, _ time.Time, _ int) ([]repository.Activity, error) {
	return f.progress, nil
}

func (f *fakeAnalytics) RecentBadges(_ context.Context, _ time.Time, _ int) ([]repository.Activity, error) {
	return f.badges, nil
}

func (f *fakeAnalytics) LiveStats(_ context.Context, _ time.Time) (repository.LiveStats, error) {
	return f.live, nil
}

func (f *fakeAnalytics) ProgressSummary(_ context.Context) ([]repository.ProgressSummaryRow, error) {
	return []repository.ProgressSummaryRow{}, nil
}

func (f *fakeAnalytics) BadgesSummary(_ context.Context) ([]repository.BadgeSummaryRow, error) {
	return []repository.BadgeSummaryRow{}, nil
}

func analyticsRequest(e *echo.Echo, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func activityAt(kind string, offset time.Duration) repository.Activity {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	return repository.Activity{
		Type:        kind,
		Description: kind,
		Timestamp:   at.Format(time.RFC3339),
		User:        "u",
	}
}

func TestOverviewTimeframe(t *testing.T) {
	fa := &fakeAnalytics{}
	h := NewAnalyticsHandler(fa, nil)
	e := echo.New()

	c, rec := analyticsRequest(e, "/api/admin/analytics/overview")
	require.NoError(t, h.Overview(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var ov repository.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, 30, ov.TimeframeDays) // default

	c, rec = analyticsRequest(e, "/api/admin/analytics/overview?timeframe=7")
	require.NoError(t, h.Overview(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, 7, ov.TimeframeDays)

	for _, bad := range []string{"zero", "0", "-3"} {
		c, rec = analyticsRequest(e, "/api/admin/analytics/overview?timeframe="+bad)
		require.NoError(t, h.Overview(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestLiveActivityMergedSortedCapped(t *testing.T) {
	fa := &fakeAnalytics{live: repository.LiveStats{OnlineUsers: 2, ActiveSessions: 2, RoomsInUse: 0}}
	// 10 of each type with interleaved timestamps; newest must win overall.
	for i := 0; i < 10; i++ {
		fa.registrations = append(fa.registrations, activityAt("user_registered", time.Duration(i*3)*time.Minute))
		fa.progress = append(fa.progress, activityAt("progress_updated", time.Duration(i*3+1)*time.Minute))
		fa.badges = append(fa.badges, activityAt("badge_earned", time.Duration(i*3+2)*time.Minute))
	}

	h := NewAnalyticsHandler(fa, nil)
	c, rec := analyticsRequest(echo.New(), "/api/admin/activity/live")
	require.NoError(t, h.LiveActivity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Activities []repository.Activity `json:"activities"`
		LiveStats  repository.LiveStats  `json:"live_stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.Activities, 20)
	for i := 1; i < len(body.Activities); i++ {
		assert.GreaterOrEqual(t, body.Activities[i-1].Timestamp, body.Activities[i].Timestamp,
			fmt.Sprintf("feed out of order at %d", i))
	}
	// The newest entry overall is the last badge award.
	assert.Equal(t, "badge_earned", body.Activities[0].Type)

	// Rooms-in-use floor.
	assert.Equal(t, 1, body.LiveStats.RoomsInUse)
	assert.Equal(t, 2, body.LiveStats.OnlineUsers)
}

func TestLiveActivityEmpty(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalytics{}, nil)
	c, rec := analyticsRequest(echo.New(), "/api/admin/activity/live")
	require.NoError(t, h.LiveActivity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Empty feed serializes as [], not null.
	assert.JSONEq(t, "[]", string(body["activities"]))
}
