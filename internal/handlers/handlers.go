// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON endpoints of the API.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/labstack/echo/v4"
)

// ServiceName is reported by the index endpoint.
const ServiceName = "ReMind Backend API"

var errInvalidBody = apperr.New(apperr.InvalidInput, "Invalid request body")

// Handlers serves the service info and health endpoints.
type Handlers struct {
	store   store.Store
	version string
	started time.Time
	now     func() time.Time
}

// New creates a new Handlers instance. Uptime is measured from the call.
func New(s store.Store, version string) *Handlers {
	return &Handlers{
		store:   s,
		version: version,
		started: time.Now(),
		now:     time.Now,
	}
}

// IndexResponse describes the running service.
type IndexResponse struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Index returns the service name, version and storage backend.
func (h *Handlers) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, IndexResponse{
		Name:      ServiceName,
		Version:   h.version,
		Database:  h.store.Backend(),
		Status:    "running",
		Timestamp: h.now().UTC(),
	})
}

// HealthResponse reports store reachability and record counts.
type HealthResponse struct {
	Status    string  `json:"status"`
	Database  string  `json:"database"`
	Users     int64   `json:"users"`
	Reminders int64   `json:"reminders"`
	Uptime    float64 `json:"uptime"`
}

type unhealthyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := h.store.Stats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "health_check_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, unhealthyResponse{
			Status:   "unhealthy",
			Database: "disconnected",
		})
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Database:  "connected",
		Users:     stats.Users,
		Reminders: stats.Reminders,
		Uptime:    h.now().Sub(h.started).Seconds(),
	})
}

// bind decodes the request body into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	return c.Validate(dst)
}
