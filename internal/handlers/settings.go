// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/remind/internal/middleware"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/settings"
	"github.com/labstack/echo/v4"
)

// SettingsHandlers contains the settings endpoints.
type SettingsHandlers struct {
	settings *settings.Service
}

// NewSettings creates a new SettingsHandlers instance.
func NewSettings(svc *settings.Service) *SettingsHandlers {
	return &SettingsHandlers{settings: svc}
}

// Get returns the stored settings or the defaults.
func (h *SettingsHandlers) Get(c echo.Context) error {
	s, err := h.settings.Get(c.Request().Context(), middleware.Principal(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Update stores the provided fields, creating the settings on first use.
func (h *SettingsHandlers) Update(c echo.Context) error {
	var patch models.SettingsPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	s, err := h.settings.Update(c.Request().Context(), middleware.Principal(c).ID, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}
