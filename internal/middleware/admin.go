package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/store"
	"github.com/ascendedtech/techlab-server/internal/utils"
)

// AdminIDKey is the context key under which AdminAuth stores the
// authenticated admin's user id for handlers and audit logging.
const AdminIDKey = "admin_user_id"

// SessionFinder looks up an active admin session by token digest.
type SessionFinder interface {
	FindActive(ctx context.Context, tokenDigest string) (repository.AdminSession, error)
}

// UserFinder loads a user by id so the role can be re-checked per request.
type UserFinder interface {
	FindByID(ctx context.Context, id uint64) (repository.User, error)
}

// AdminAuth returns middleware that validates an opaque admin bearer token
// against the sessions table.  The session must be active and unexpired,
// and its owning user must still hold the admin role; a demotion takes
// effect immediately, even for sessions issued earlier.
func AdminAuth(secret string, sessions SessionFinder, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Admin authentication required"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			sess, err := sessions.FindActive(ctx, utils.HashSessionToken(secret, raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired admin session"})
			}

			expired, err := store.Expired(sess.ExpiresAt, time.Now())
			if err != nil || expired {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Session expired"})
			}

			// Role may have changed since the session was issued.
			u, err := users.FindByID(ctx, sess.UserID)
			if err != nil || u.Role != "admin" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Admin privileges required"})
			}

			c.Set(AdminIDKey, sess.UserID)
			return next(c)
		}
	}
}
