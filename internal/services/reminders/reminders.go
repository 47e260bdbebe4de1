// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reminders manages a user's reminders and enforces row ownership.
package reminders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
)

var (
	ErrNotFound      = apperr.New(apperr.NotFound, "Reminder not found")
	ErrForbidden     = apperr.New(apperr.Forbidden, "Forbidden")
	ErrNoUpdates     = apperr.New(apperr.InvalidInput, "No updates provided")
	ErrInvalidStatus = apperr.New(apperr.InvalidInput, "Status must be active or archived")
)

// CreateParams holds the fields of a new reminder.
type CreateParams struct {
	Title       string
	Description string
	Location    models.JSON
	Radius      int
}

type Service struct {
	reminders store.Reminders
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(reminders store.Reminders, opts ...Option) *Service {
	s := &Service{reminders: reminders, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the user's reminders with status, newest first. An empty status means active.
func (s *Service) List(ctx context.Context, userID int64, status string) ([]models.Reminder, error) {
	if status == "" {
		status = models.StatusActive
	}
	if status != models.StatusActive && status != models.StatusArchived {
		return nil, ErrInvalidStatus
	}

	reminders, err := s.reminders.ListReminders(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// All returns every reminder of the user regardless of status, newest first.
func (s *Service) All(ctx context.Context, userID int64) ([]models.Reminder, error) {
	var all []models.Reminder
	for _, status := range []string{models.StatusActive, models.StatusArchived} {
		reminders, err := s.reminders.ListReminders(ctx, userID, status)
		if err != nil {
			return nil, fmt.Errorf("failed to list reminders: %w", err)
		}
		all = append(all, reminders...)
	}

	slices.SortStableFunc(all, func(a, b models.Reminder) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if all == nil {
		all = []models.Reminder{}
	}
	return all, nil
}

// Create stores a new active reminder for the user.
func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*models.Reminder, error) {
	r := &models.Reminder{
		UserID:      userID,
		Title:       params.Title,
		Description: params.Description,
		Location:    params.Location,
		Radius:      params.Radius,
		Status:      models.StatusActive,
	}
	if err := s.reminders.CreateReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return r, nil
}

// Update applies patch to a reminder the user owns.
func (s *Service) Update(ctx context.Context, userID, id int64, patch models.ReminderPatch) (*models.Reminder, error) {
	r, err := s.reminders.GetReminder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	if r.UserID != userID {
		return nil, ErrForbidden
	}
	if patch.Empty() {
		return nil, ErrNoUpdates
	}

	patch.Apply(r)
	err = s.reminders.UpdateReminder(ctx, r)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return r, nil
}

// Delete removes a reminder the user owns.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.reminders.DeleteReminder(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// Archive archives a reminder the user owns.
func (s *Service) Archive(ctx context.Context, userID, id int64) (*models.Reminder, error) {
	archived, err := s.BatchArchive(ctx, userID, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(archived) == 0 {
		return nil, ErrNotFound
	}
	return &archived[0], nil
}

// BatchArchive archives the listed reminders the user owns. Other IDs are ignored.
func (s *Service) BatchArchive(ctx context.Context, userID int64, ids []int64) ([]models.Reminder, error) {
	archived, err := s.reminders.ArchiveReminders(ctx, userID, ids, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to archive reminders: %w", err)
	}
	return archived, nil
}

// BatchDelete deletes the listed reminders the user owns and returns how many were removed.
func (s *Service) BatchDelete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	n, err := s.reminders.DeleteReminders(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return n, nil
}
