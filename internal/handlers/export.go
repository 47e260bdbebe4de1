// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/remind/internal/middleware"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/auth"
	"codeberg.org/oliverandrich/remind/internal/services/reminders"
	"codeberg.org/oliverandrich/remind/internal/services/settings"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/labstack/echo/v4"
)

// ExportHandlers serves the data export.
type ExportHandlers struct {
	users     store.Users
	reminders *reminders.Service
	settings  *settings.Service
	now       func() time.Time
}

// NewExport creates a new ExportHandlers instance.
func NewExport(users store.Users, rem *reminders.Service, set *settings.Service) *ExportHandlers {
	return &ExportHandlers{
		users:     users,
		reminders: rem,
		settings:  set,
		now:       time.Now,
	}
}

// ExportUser is the account part of an export.
type ExportUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportResponse holds everything stored for an account. Settings is null when the
// user never saved any.
type ExportResponse struct {
	User       ExportUser        `json:"user"`
	Reminders  []models.Reminder `json:"reminders"`
	Settings   *models.Settings  `json:"settings"`
	ExportedAt time.Time         `json:"exportedAt"`
}

// Export returns the account, all reminders and the stored settings.
func (h *ExportHandlers) Export(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.Principal(c)

	user, err := h.users.GetUserByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return auth.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	all, err := h.reminders.All(ctx, p.ID)
	if err != nil {
		return err
	}

	stored, err := h.settings.Stored(ctx, p.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExportResponse{
		User: ExportUser{
			ID:        user.ID,
			Email:     user.Email,
			PublicKey: user.PublicKey,
			CreatedAt: user.CreatedAt,
		},
		Reminders:  all,
		Settings:   stored,
		ExportedAt: h.now().UTC(),
	})
}
