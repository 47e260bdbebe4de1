// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Settings defaults, returned until a user stores their own.
const (
	DefaultNotifications    = true
	DefaultTheme            = "light"
	DefaultLocationAccuracy = "high"
)

// Settings holds per-user preferences. There is at most one row per user.
type Settings struct { //nolint:govet // fieldalignment not critical for models
	ID               int64     `db:"id" json:"id,omitempty"`
	UserID           int64     `db:"user_id" json:"user_id,omitempty"`
	Notifications    bool      `db:"notifications" json:"notifications"`
	Theme            string    `db:"theme" json:"theme"`
	LocationAccuracy string    `db:"location_accuracy" json:"location_accuracy"`
	CreatedAt        time.Time `db:"created_at" json:"created_at,omitzero"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at,omitzero"`
}

// DefaultSettings returns the settings of a user who never changed them.
func DefaultSettings() *Settings {
	return &Settings{
		Notifications:    DefaultNotifications,
		Theme:            DefaultTheme,
		LocationAccuracy: DefaultLocationAccuracy,
	}
}

// SettingsPatch lists the fields of a settings upsert. Nil fields stay unchanged.
type SettingsPatch struct {
	Notifications    *bool   `json:"notifications"`
	Theme            *string `json:"theme" validate:"omitempty,max=20"`
	LocationAccuracy *string `json:"location_accuracy" validate:"omitempty,max=20"`
}

// Apply copies the provided fields onto s.
func (p *SettingsPatch) Apply(s *Settings) {
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.LocationAccuracy != nil {
		s.LocationAccuracy = *p.LocationAccuracy
	}
}
