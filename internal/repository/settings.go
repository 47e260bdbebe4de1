// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
)

// GetSettings returns the stored settings of a user.
func (r *Repository) GetSettings(ctx context.Context, userID int64) (*models.Settings, error) {
	var settings models.Settings
	err := r.db.GetContext(ctx, &settings, r.db.Rebind(`SELECT * FROM settings WHERE user_id = ?`), userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &settings, nil
}

// UpsertSettings inserts the row, defaulting unset fields, or updates only the set fields.
func (r *Repository) UpsertSettings(ctx context.Context, userID int64, patch models.SettingsPatch, now time.Time) (*models.Settings, error) {
	initial := models.DefaultSettings()
	patch.Apply(initial)
	now = now.UTC()

	var settings models.Settings
	err := r.db.GetContext(ctx, &settings, r.db.Rebind(
		`INSERT INTO settings (user_id, notifications, theme, location_accuracy, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   notifications = COALESCE(?, settings.notifications),
		   theme = COALESCE(?, settings.theme),
		   location_accuracy = COALESCE(?, settings.location_accuracy),
		   updated_at = excluded.updated_at
		 RETURNING *`),
		userID, initial.Notifications, initial.Theme, initial.LocationAccuracy, now, now,
		patch.Notifications, patch.Theme, patch.LocationAccuracy)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
