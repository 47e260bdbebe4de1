// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"cmp"
	"context"
	"slices"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"github.com/vinovest/sqlx"
)

// ListReminders returns the user's reminders with the given status, newest first.
func (r *Repository) ListReminders(ctx context.Context, userID int64, status string) ([]models.Reminder, error) {
	reminders := []models.Reminder{}
	err := r.db.SelectContext(ctx, &reminders, r.db.Rebind(
		`SELECT * FROM reminders WHERE user_id = ? AND status = ? ORDER BY created_at DESC, id DESC`),
		userID, status)
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// GetReminder retrieves a reminder by ID regardless of owner.
func (r *Repository) GetReminder(ctx context.Context, id int64) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.db.GetContext(ctx, &reminder, r.db.Rebind(`SELECT * FROM reminders WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &reminder, nil
}

// CreateReminder inserts rem and fills in its ID and timestamps.
func (r *Repository) CreateReminder(ctx context.Context, rem *models.Reminder) error {
	now := time.Now().UTC()
	rem.CreatedAt, rem.UpdatedAt = now, now
	if rem.Status == "" {
		rem.Status = models.StatusActive
	}

	return r.db.GetContext(ctx, &rem.ID, r.db.Rebind(
		`INSERT INTO reminders (user_id, title, description, location, radius, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		rem.UserID, rem.Title, rem.Description, rem.Location, rem.Radius, rem.Status, now, now)
}

// UpdateReminder writes the editable fields of rem.
func (r *Repository) UpdateReminder(ctx context.Context, rem *models.Reminder) error {
	rem.UpdatedAt = time.Now().UTC()
	return expectRows(r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE reminders SET title = ?, description = ?, location = ?, radius = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`),
		rem.Title, rem.Description, rem.Location, rem.Radius, rem.UpdatedAt, rem.ID, rem.UserID))
}

// DeleteReminder deletes one of the user's reminders.
func (r *Repository) DeleteReminder(ctx context.Context, userID, id int64) error {
	return expectRows(r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM reminders WHERE id = ? AND user_id = ?`), id, userID))
}

// ArchiveReminders archives the listed reminders owned by the user and returns them.
// IDs of other users' reminders are skipped.
func (r *Repository) ArchiveReminders(ctx context.Context, userID int64, ids []int64, at time.Time) ([]models.Reminder, error) {
	archived := []models.Reminder{}
	if len(ids) == 0 {
		return archived, nil
	}

	at = at.UTC()
	query, args, err := sqlx.In(
		`UPDATE reminders SET status = ?, archived_at = ?, updated_at = ?
		 WHERE user_id = ? AND id IN (?)
		 RETURNING *`,
		models.StatusArchived, at, at, userID, ids)
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &archived, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	slices.SortFunc(archived, func(a, b models.Reminder) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return archived, nil
}

// DeleteReminders deletes the listed reminders owned by the user and reports how many went.
func (r *Repository) DeleteReminders(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM reminders WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
