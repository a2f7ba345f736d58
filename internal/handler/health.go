package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness plus a real database ping.
type HealthHandler struct {
	DB *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler { return &HealthHandler{DB: db} }

func (h *HealthHandler) Check(c echo.Context) error {
	dbStatus := "OK"
	if h.DB == nil {
		dbStatus = "Not configured"
	} else {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			dbStatus = "Unavailable"
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":    "OK",
		"message":   "API is running",
		"database":  "MySQL",
		"db_status": dbStatus,
	})
}
