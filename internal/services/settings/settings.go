// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package settings reads and upserts per-user preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
)

type Service struct {
	settings store.Settings
	now      func() time.Time
}

func NewService(settings store.Settings) *Service {
	return &Service{settings: settings, now: time.Now}
}

// Get returns the stored settings or the defaults when the user has none.
func (s *Service) Get(ctx context.Context, userID int64) (*models.Settings, error) {
	stored, err := s.Stored(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return models.DefaultSettings(), nil
	}
	return stored, nil
}

// Stored returns the stored settings, or nil when the user has none.
func (s *Service) Stored(ctx context.Context, userID int64) (*models.Settings, error) {
	stored, err := s.settings.GetSettings(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return stored, nil
}

// Update applies patch, creating the row with defaults for unset fields if needed.
func (s *Service) Update(ctx context.Context, userID int64, patch models.SettingsPatch) (*models.Settings, error) {
	updated, err := s.settings.UpsertSettings(ctx, userID, patch, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return updated, nil
}
