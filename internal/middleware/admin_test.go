package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/utils"
)

const testSecret = "test-secret"

type stubSessions map[string]repository.AdminSession

func (s stubSessions) FindActive(_ context.Context, digest string) (repository.AdminSession, error) {
	sess, ok := s[digest]
	if !ok {
		return repository.AdminSession{}, repository.ErrNotFound
	}
	return sess, nil
}

type stubUsers map[uint64]repository.User

func (s stubUsers) FindByID(_ context.Context, id uint64) (repository.User, error) {
	u, ok := s[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func runAdminAuth(t *testing.T, sessions stubSessions, users stubUsers, authHeader string) (*httptest.ResponseRecorder, bool, any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	var adminID any
	mw := AdminAuth(testSecret, sessions, users)
	err := mw(func(c echo.Context) error {
		called = true
		adminID = c.Get(AdminIDKey)
		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)
	return rec, called, adminID
}

func TestAdminAuthMissingHeader(t *testing.T) {
	rec, called, _ := runAdminAuth(t, stubSessions{}, stubUsers{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	rec, called, _ = runAdminAuth(t, stubSessions{}, stubUsers{}, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAdminAuthUnknownToken(t *testing.T) {
	rec, called, _ := runAdminAuth(t, stubSessions{}, stubUsers{}, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAdminAuthValidSession(t *testing.T) {
	raw := "raw-token"
	sessions := stubSessions{
		utils.HashSessionToken(testSecret, raw): {ID: 1, UserID: 42, ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}
	users := stubUsers{42: {ID: 42, Name: "admin", Role: "admin", IsActive: true}}

	rec, called, adminID := runAdminAuth(t, sessions, users, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, uint64(42), adminID)
}

func TestAdminAuthExpiredSession(t *testing.T) {
	raw := "raw-token"
	sessions := stubSessions{
		utils.HashSessionToken(testSecret, raw): {ID: 1, UserID: 42, ExpiresAt: time.Now().UTC().Add(-time.Minute)},
	}
	users := stubUsers{42: {ID: 42, Role: "admin"}}

	rec, called, _ := runAdminAuth(t, sessions, users, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAdminAuthDemotedUser(t *testing.T) {
	// A valid session stops working the moment its owner loses the role.
	raw := "raw-token"
	sessions := stubSessions{
		utils.HashSessionToken(testSecret, raw): {ID: 1, UserID: 42, ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}
	users := stubUsers{42: {ID: 42, Role: "user"}}

	rec, called, _ := runAdminAuth(t, sessions, users, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAdminAuthStringExpiryShapes(t *testing.T) {
	// Sessions written by earlier deployments may carry string expiries.
	raw := "raw-token"
	future := time.Now().UTC().Add(time.Hour).Format("2006-01-02 15:04:05")
	sessions := stubSessions{
		utils.HashSessionToken(testSecret, raw): {ID: 1, UserID: 7, ExpiresAt: future},
	}
	users := stubUsers{7: {ID: 7, Role: "admin"}}

	rec, called, _ := runAdminAuth(t, sessions, users, "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
