// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/middleware"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/reminders"
	"github.com/labstack/echo/v4"
)

// MsgReminderDeleted confirms a single delete.
const MsgReminderDeleted = "Reminder deleted successfully"

var errIDsNotArray = apperr.New(apperr.InvalidInput, "ids must be an array")

// ReminderHandlers contains the reminder endpoints.
type ReminderHandlers struct {
	reminders *reminders.Service
}

// NewReminders creates a new ReminderHandlers instance.
func NewReminders(svc *reminders.Service) *ReminderHandlers {
	return &ReminderHandlers{reminders: svc}
}

// CreateReminderRequest is the request body for a new reminder.
type CreateReminderRequest struct {
	Title       string      `json:"title" validate:"required,max=500"`
	Description string      `json:"description" validate:"max=5000"`
	Location    models.JSON `json:"location"`
	Radius      int         `json:"radius" validate:"gte=0"`
}

// BatchRequest is the request body of the batch endpoints.
type BatchRequest struct {
	IDs json.RawMessage `json:"ids"`
}

// List returns the reminders with the requested status, active by default.
func (h *ReminderHandlers) List(c echo.Context) error {
	list, err := h.reminders.List(c.Request().Context(), middleware.Principal(c).ID, c.QueryParam("status"))
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Reminder{}
	}
	return c.JSON(http.StatusOK, list)
}

// Create stores a new reminder.
func (h *ReminderHandlers) Create(c echo.Context) error {
	var req CreateReminderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	r, err := h.reminders.Create(c.Request().Context(), middleware.Principal(c).ID, reminders.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Radius:      req.Radius,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

// Update applies the provided fields to a reminder.
func (h *ReminderHandlers) Update(c echo.Context) error {
	id, err := reminderID(c)
	if err != nil {
		return err
	}

	var patch models.ReminderPatch
	if err := bind(c, &patch); err != nil {
		return err
	}

	r, err := h.reminders.Update(c.Request().Context(), middleware.Principal(c).ID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// Delete removes a reminder.
func (h *ReminderHandlers) Delete(c echo.Context) error {
	id, err := reminderID(c)
	if err != nil {
		return err
	}

	if err := h.reminders.Delete(c.Request().Context(), middleware.Principal(c).ID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgReminderDeleted})
}

// Archive archives a reminder.
func (h *ReminderHandlers) Archive(c echo.Context) error {
	id, err := reminderID(c)
	if err != nil {
		return err
	}

	r, err := h.reminders.Archive(c.Request().Context(), middleware.Principal(c).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// BatchArchive archives the listed reminders and returns the ones that changed.
func (h *ReminderHandlers) BatchArchive(c echo.Context) error {
	ids, err := batchIDs(c)
	if err != nil {
		return err
	}

	archived, err := h.reminders.BatchArchive(c.Request().Context(), middleware.Principal(c).ID, ids)
	if err != nil {
		return err
	}
	if archived == nil {
		archived = []models.Reminder{}
	}
	return c.JSON(http.StatusOK, archived)
}

// BatchDelete deletes the listed reminders.
func (h *ReminderHandlers) BatchDelete(c echo.Context) error {
	ids, err := batchIDs(c)
	if err != nil {
		return err
	}

	n, err := h.reminders.BatchDelete(c.Request().Context(), middleware.Principal(c).ID, ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("%d reminders deleted successfully", n),
	})
}

// reminderID parses the :id path parameter. IDs that cannot exist are reported as
// not found.
func reminderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, reminders.ErrNotFound
	}
	return id, nil
}

func batchIDs(c echo.Context) ([]int64, error) {
	var req BatchRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}

	var ids []int64
	if len(req.IDs) == 0 || req.IDs[0] != '[' {
		return nil, errIDsNotArray
	}
	if err := json.Unmarshal(req.IDs, &ids); err != nil {
		return nil, errIDsNotArray
	}
	return ids, nil
}
