package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ascendedtech/techlab-server/internal/queue"
	"github.com/ascendedtech/techlab-server/internal/repository"
)

// ProgressHandler serves per-user room progress and badge awards.
type ProgressHandler struct {
	Users    UserStore
	Progress ProgressStore
	Badges   BadgeStore
	Events   Publisher
}

func NewProgressHandler(u UserStore, p ProgressStore, b BadgeStore, ev Publisher) *ProgressHandler {
	return &ProgressHandler{Users: u, Progress: p, Badges: b, Events: ev}
}

type progressReq struct {
	RoomName           string `json:"room_name"`
	ProgressPercentage int    `json:"progress_percentage"`
	Completed          bool   `json:"completed"`
}

type badgeReq struct {
	BadgeName string `json:"badge_name"`
	BadgeType string `json:"badge_type"`
}

// GetProgress lists a user's progress rows, most recently accessed first.
func (h *ProgressHandler) GetProgress(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, err := h.requireUser(ctx, c, id); !ok {
		return err
	}

	recs, err := h.Progress.ListByUser(ctx, id)
	if err != nil {
		return progressFailed(c, err)
	}
	for _, rec := range recs {
		room, _ := rec["room_name"].(string)
		if room == "" {
			room = "Unknown Room"
		}
		rec["display_name"] = room
		rec["max_score"] = 100
	}
	return c.JSON(http.StatusOK, recs)
}

// UpdateProgress upserts the (user, room) progress row.  A new row answers
// 201, an update answers 200.
func (h *ProgressHandler) UpdateProgress(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}
	var req progressReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Room name is required"})
	}
	req.RoomName = strings.TrimSpace(req.RoomName)
	if req.RoomName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Room name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, err := h.requireUser(ctx, c, id); !ok {
		return err
	}

	created, err := h.Progress.Upsert(ctx, id, req.RoomName, req.ProgressPercentage, req.Completed)
	if err != nil {
		return progressFailed(c, err)
	}
	if created {
		return c.JSON(http.StatusCreated, echo.Map{"message": "Progress created successfully"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Progress updated successfully"})
}

// GetBadges lists a user's badges, newest first.
func (h *ProgressHandler) GetBadges(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, err := h.requireUser(ctx, c, id); !ok {
		return err
	}

	recs, err := h.Badges.ListByUser(ctx, id)
	if err != nil {
		return progressFailed(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

// AwardBadge records a badge for the user.  Repeat awards of the same badge
// produce distinct rows.
func (h *ProgressHandler) AwardBadge(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}
	var req badgeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Badge name is required"})
	}
	req.BadgeName = strings.TrimSpace(req.BadgeName)
	if req.BadgeName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Badge name is required"})
	}
	if req.BadgeType == "" {
		req.BadgeType = "achievement"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, err := h.requireUser(ctx, c, id); !ok {
		return err
	}

	badgeID, err := h.Badges.Award(ctx, id, req.BadgeName, req.BadgeType)
	if err != nil {
		return progressFailed(c, err)
	}

	if h.Events != nil {
		_ = h.Events.PublishBadgeEarned(ctx, queue.BadgeEarnedEvent{
			BadgeID:   badgeID,
			UserID:    id,
			BadgeName: req.BadgeName,
			BadgeType: req.BadgeType,
			EarnedAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": badgeID, "message": "Badge awarded successfully"})
}

// requireUser checks the target user exists.  When ok is false the response
// has already been written and the handler must return err as-is.
func (h *ProgressHandler) requireUser(ctx context.Context, c echo.Context, id uint64) (ok bool, err error) {
	_, err = h.Users.FindByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}
	return false, progressFailed(c, err)
}

func progressFailed(c echo.Context, err error) error {
	log.Printf("progress: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
}
