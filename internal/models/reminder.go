// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Reminder statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Reminder is a location-triggered reminder owned by a user.
type Reminder struct { //nolint:govet // fieldalignment not critical for models
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Location    JSON       `db:"location" json:"location"`
	Radius      int        `db:"radius" json:"radius"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at"`
}

// ReminderPatch lists the fields of a partial update. Nil fields stay unchanged.
type ReminderPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=500"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Location    JSON    `json:"location"`
	Radius      *int    `json:"radius" validate:"omitempty,gte=0"`
}

// Empty reports whether the patch changes nothing.
func (p *ReminderPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.Radius == nil
}

// Apply copies the provided fields onto r.
func (p *ReminderPatch) Apply(r *Reminder) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Location != nil {
		r.Location = p.Location
	}
	if p.Radius != nil {
		r.Radius = *p.Radius
	}
}
