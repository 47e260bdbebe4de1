// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package memstore implements store.Store in process memory. All data is lost on restart.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
)

// Store keeps all records in maps behind a single lock. Records are copied on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	users       map[int64]*models.User
	userByEmail map[string]int64
	codes       map[string]models.VerificationCode // keyed by email
	reminders   map[int64]*models.Reminder
	settings    map[int64]*models.Settings // keyed by user ID

	nextUserID     int64
	nextReminderID int64
	nextSettingsID int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:       make(map[int64]*models.User),
		userByEmail: make(map[string]int64),
		codes:       make(map[string]models.VerificationCode),
		reminders:   make(map[int64]*models.Reminder),
		settings:    make(map[int64]*models.Settings),
	}
}

// Backend names the storage engine.
func (s *Store) Backend() string {
	return "memory"
}

// Stats counts users and reminders.
func (s *Store) Stats(_ context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{Users: int64(len(s.users)), Reminders: int64(len(s.reminders))}, nil
}

// ===== Users =====

// CreateUser inserts an unverified user. A taken email yields store.ErrConflict.
func (s *Store) CreateUser(_ context.Context, email, passwordHash, publicKey string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userByEmail[email]; ok {
		return nil, store.ErrConflict
	}

	s.nextUserID++
	now := time.Now().UTC()
	user := &models.User{
		ID:           s.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		PublicKey:    publicKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	s.userByEmail[email] = user.ID

	clone := *user
	return &clone, nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// GetUserByEmail retrieves a user by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.userByEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

// MarkUserVerified flags the user as verified.
func (s *Store) MarkUserVerified(_ context.Context, id int64) error {
	return s.updateUser(id, func(u *models.User) {
		u.Verified = true
	})
}

// UpdateUserPassword replaces the stored password hash.
func (s *Store) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	return s.updateUser(id, func(u *models.User) {
		u.PasswordHash = passwordHash
	})
}

func (s *Store) updateUser(id int64, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(user)
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteUser removes the user with its codes, reminders and settings.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}

	delete(s.codes, user.Email)
	for rid, r := range s.reminders {
		if r.UserID == id {
			delete(s.reminders, rid)
		}
	}
	delete(s.settings, id)
	delete(s.userByEmail, user.Email)
	delete(s.users, id)
	return nil
}

// ===== Verification codes =====

// ReplaceVerificationCode stores the code for email, superseding any earlier one.
func (s *Store) ReplaceVerificationCode(_ context.Context, email, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userByEmail[email]; !ok {
		return store.ErrNotFound
	}
	s.codes[email] = models.VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// ConsumeVerificationCode returns the email of a code still valid at now and deletes it.
func (s *Store) ConsumeVerificationCode(_ context.Context, code string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for email, vc := range s.codes {
		if vc.Code == code && !vc.Expired(now) {
			delete(s.codes, email)
			return email, nil
		}
	}
	return "", store.ErrNotFound
}

// DeleteExpiredVerificationCodes purges codes that expired before now.
func (s *Store) DeleteExpiredVerificationCodes(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for email, vc := range s.codes {
		if vc.Expired(now) {
			delete(s.codes, email)
			n++
		}
	}
	return n, nil
}

// ===== Reminders =====

// ListReminders returns the user's reminders with the given status, newest first.
func (s *Store) ListReminders(_ context.Context, userID int64, status string) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminders := []models.Reminder{}
	for _, r := range s.reminders {
		if r.UserID == userID && r.Status == status {
			reminders = append(reminders, cloneReminder(r))
		}
	}
	slices.SortFunc(reminders, func(a, b models.Reminder) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return reminders, nil
}

// GetReminder retrieves a reminder by ID regardless of owner.
func (s *Store) GetReminder(_ context.Context, id int64) (*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := cloneReminder(r)
	return &clone, nil
}

// CreateReminder inserts rem and fills in its ID and timestamps.
func (s *Store) CreateReminder(_ context.Context, rem *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[rem.UserID]; !ok {
		return store.ErrNotFound
	}

	s.nextReminderID++
	now := time.Now().UTC()
	rem.ID = s.nextReminderID
	rem.CreatedAt, rem.UpdatedAt = now, now
	if rem.Status == "" {
		rem.Status = models.StatusActive
	}

	stored := cloneReminder(rem)
	s.reminders[rem.ID] = &stored
	return nil
}

// UpdateReminder writes the editable fields of rem.
func (s *Store) UpdateReminder(_ context.Context, rem *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reminders[rem.ID]
	if !ok || stored.UserID != rem.UserID {
		return store.ErrNotFound
	}

	rem.UpdatedAt = time.Now().UTC()
	stored.Title = rem.Title
	stored.Description = rem.Description
	stored.Location = slices.Clone(rem.Location)
	stored.Radius = rem.Radius
	stored.UpdatedAt = rem.UpdatedAt
	return nil
}

// DeleteReminder deletes one of the user's reminders.
func (s *Store) DeleteReminder(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok || r.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.reminders, id)
	return nil
}

// ArchiveReminders archives the listed reminders owned by the user and returns them.
func (s *Store) ArchiveReminders(_ context.Context, userID int64, ids []int64, at time.Time) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at = at.UTC()
	archived := []models.Reminder{}
	for _, id := range uniqueIDs(ids) {
		r, ok := s.reminders[id]
		if !ok || r.UserID != userID {
			continue
		}
		archivedAt := at
		r.Status = models.StatusArchived
		r.ArchivedAt = &archivedAt
		r.UpdatedAt = at
		archived = append(archived, cloneReminder(r))
	}
	return archived, nil
}

// DeleteReminders deletes the listed reminders owned by the user and reports how many went.
func (s *Store) DeleteReminders(_ context.Context, userID int64, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range uniqueIDs(ids) {
		r, ok := s.reminders[id]
		if !ok || r.UserID != userID {
			continue
		}
		delete(s.reminders, id)
		n++
	}
	return n, nil
}

// ===== Settings =====

// GetSettings returns the stored settings of a user.
func (s *Store) GetSettings(_ context.Context, userID int64) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *settings
	return &clone, nil
}

// UpsertSettings inserts the row, defaulting unset fields, or updates only the set fields.
func (s *Store) UpsertSettings(_ context.Context, userID int64, patch models.SettingsPatch, now time.Time) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}

	now = now.UTC()
	settings, ok := s.settings[userID]
	if !ok {
		s.nextSettingsID++
		settings = models.DefaultSettings()
		settings.ID = s.nextSettingsID
		settings.UserID = userID
		settings.CreatedAt = now
		s.settings[userID] = settings
	}
	patch.Apply(settings)
	settings.UpdatedAt = now

	clone := *settings
	return &clone, nil
}

func cloneReminder(r *models.Reminder) models.Reminder {
	clone := *r
	clone.Location = slices.Clone(r.Location)
	if r.ArchivedAt != nil {
		at := *r.ArchivedAt
		clone.ArchivedAt = &at
	}
	return clone
}

// uniqueIDs returns ids sorted ascending without duplicates.
func uniqueIDs(ids []int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
