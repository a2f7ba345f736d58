package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/store"
)

// UserHandler serves the plain user CRUD surface.  Accounts created here
// carry no password; they cannot log in until one is set through the
// registration flow.
type UserHandler struct {
	Users UserStore
}

func NewUserHandler(u UserStore) *UserHandler { return &UserHandler{Users: u} }

type createUserReq struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	IsActive      *bool  `json:"is_active"`
	TotalScore    int    `json:"total_score"`
	CurrentStreak int    `json:"current_streak"`
}

type updateUserReq struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Role          *string `json:"role"`
	IsActive      *bool   `json:"is_active"`
	TotalScore    *int    `json:"total_score"`
	CurrentStreak *int    `json:"current_streak"`
}

// List returns up to 100 users, newest first.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Users.List(ctx, 100)
	if err != nil {
		return usersFailed(c, err)
	}
	for _, rec := range recs {
		sanitizeUserRecord(rec)
	}
	return c.JSON(http.StatusOK, recs)
}

// Create inserts a user directly, without the verification flow.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No data provided"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Name and email are required"})
	}
	if !emailRe.MatchString(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid email format"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if taken, err := h.Users.EmailTaken(ctx, req.Email); err != nil {
		return usersFailed(c, err)
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already exists"})
	}
	if taken, err := h.Users.NameTaken(ctx, req.Name); err != nil {
		return usersFailed(c, err)
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists"})
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	id, err := h.Users.Create(ctx, repository.User{
		Name:          req.Name,
		Email:         req.Email,
		Role:          role,
		IsActive:      active,
		TotalScore:    req.TotalScore,
		CurrentStreak: req.CurrentStreak,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already exists"})
		}
		if errors.Is(err, repository.ErrNameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists"})
		}
		return usersFailed(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":      id,
		"message": "User created successfully",
		"user":    echo.Map{"id": id, "name": req.Name, "email": req.Email},
	})
}

// Get returns a single user by id.
func (h *UserHandler) Get(c echo.Context) error {
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
		return usersFailed(c, err)
	}
	return c.JSON(http.StatusOK, userView(u))
}

// Update applies a whitelisted patch to a user row.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No data provided"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return usersFailed(c, err)
	}

	patch := store.Record{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		patch["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		patch["role"] = *req.Role
	}
	if req.IsActive != nil {
		patch["is_active"] = *req.IsActive
	}
	if req.TotalScore != nil {
		patch["total_score"] = *req.TotalScore
	}
	if req.CurrentStreak != nil {
		patch["current_streak"] = *req.CurrentStreak
	}

	if err := h.Users.UpdateFields(ctx, id, patch); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already exists"})
		}
		if errors.Is(err, repository.ErrNameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists"})
		}
		return usersFailed(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully"})
}

// Delete removes a user by id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return usersFailed(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// userView is the credential-free public shape of a user row.
func userView(u repository.User) echo.Map {
	return echo.Map{
		"id":             u.ID,
		"name":           u.Name,
		"email":          u.Email,
		"role":           u.Role,
		"is_active":      u.IsActive,
		"email_verified": u.EmailVerified,
		"total_score":    u.TotalScore,
		"current_streak": u.CurrentStreak,
		"last_login":     u.LastLogin,
		"created_at":     u.CreatedAt,
	}
}

func usersFailed(c echo.Context, err error) error {
	log.Printf("users: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}
