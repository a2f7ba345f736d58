package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ascendedtech/techlab-server/internal/middleware"
	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/store"
	"github.com/ascendedtech/techlab-server/internal/utils"
)

// AdminHandler covers the admin console: session login, user management and
// the audit trail around it.
type AdminHandler struct {
	Secret   string
	Users    UserStore
	Sessions SessionStore
	Audit    AuditLogger
	Progress ProgressStore
	Badges   BadgeStore
}

func NewAdminHandler(secret string, u UserStore, s SessionStore, a AuditLogger, p ProgressStore, b BadgeStore) *AdminHandler {
	return &AdminHandler{Secret: secret, Users: u, Sessions: s, Audit: a, Progress: p, Badges: b}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin issues an 8-hour opaque bearer session for an active admin.
func (h *AdminHandler) AdminLogin(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No data provided"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindActiveAdmin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Admin user not found or inactive"})
		}
		return adminLoginFailed(c, err)
	}

	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
	}

	token, err := utils.NewSessionToken()
	if err != nil {
		return adminLoginFailed(c, err)
	}
	expiresAt := time.Now().UTC().Add(repository.SessionTTL)
	if err := h.Sessions.Create(ctx, u.ID, utils.HashSessionToken(h.Secret, token), expiresAt); err != nil {
		return adminLoginFailed(c, err)
	}

	if err := h.Users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Printf("admin login: updating last_login for user %d: %v", u.ID, err)
	}
	if err := h.Audit.Log(ctx, u.ID, "LOGIN", "Admin login successful", c.RealIP(), nil); err != nil {
		log.Printf("admin login: audit write failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Admin login successful",
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"user": echo.Map{
			"id":       u.ID,
			"username": u.Name,
			"email":    u.Email,
			"role":     u.Role,
		},
	})
}

// ListUsers lists every account, newest first, enriched with progress and
// badge counts for the dashboard table.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Users.List(ctx, 0)
	if err != nil {
		log.Printf("admin users: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list users"})
	}

	for _, rec := range recs {
		sanitizeUserRecord(rec)
		id := recordID(rec)

		count, avg, err := h.Progress.StatsForUser(ctx, id)
		if err != nil {
			log.Printf("admin users: progress stats for user %d: %v", id, err)
		}
		rec["progress_count"] = count
		rec["avg_progress"] = round1(avg)

		badges, err := h.Badges.CountForUser(ctx, id)
		if err != nil {
			log.Printf("admin users: badge count for user %d: %v", id, err)
		}
		rec["badges_count"] = badges
	}

	return c.JSON(http.StatusOK, recs)
}

// Promote toggles a user's role between user and admin and audits the change.
func (h *AdminHandler) Promote(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return adminActionFailed(c, "promote", err)
	}

	newRole := "admin"
	if u.Role == "admin" {
		newRole = "user"
	}
	if err := h.Users.SetRole(ctx, id, newRole); err != nil {
		return adminActionFailed(c, "promote", err)
	}

	actionType := "PROMOTE_USER"
	message := "User promoted to admin"
	if newRole == "user" {
		actionType = "DEMOTE_USER"
		message = "User demoted to user"
	}
	if err := h.Audit.Log(ctx, adminID(c), actionType, "Changed user role to "+newRole, c.RealIP(), &id); err != nil {
		log.Printf("promote: audit write failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": message, "new_role": newRole})
}

// DeleteUser removes an account, with an audit record naming who did it.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return adminActionFailed(c, "delete user", err)
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return adminActionFailed(c, "delete user", err)
	}

	desc := fmt.Sprintf("Deleted user %s (%s)", u.Name, u.Email)
	if err := h.Audit.Log(ctx, adminID(c), "DELETE_USER", desc, c.RealIP(), &id); err != nil {
		log.Printf("delete user: audit write failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

func adminLoginFailed(c echo.Context, err error) error {
	log.Printf("admin login: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Admin login failed"})
}

func adminActionFailed(c echo.Context, op string, err error) error {
	log.Printf("%s: %v", op, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Operation failed"})
}

// adminID reads the authenticated admin's id set by the auth middleware.
func adminID(c echo.Context) uint64 {
	if id, ok := c.Get(middleware.AdminIDKey).(uint64); ok {
		return id
	}
	return 0
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// sanitizeUserRecord strips credential material before a row leaves the API.
func sanitizeUserRecord(rec store.Record) {
	delete(rec, "password_hash")
}

// recordID extracts the numeric id from a raw row regardless of the shape
// the driver handed back.
func recordID(rec store.Record) uint64 {
	switch v := rec["id"].(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	case string:
		n, _ := strconv.ParseUint(v, 10, 64)
		return n
	default:
		return 0
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
