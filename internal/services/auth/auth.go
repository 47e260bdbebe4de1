// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the account lifecycle: signup, email verification, login,
// password change and account deletion.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/verification"
	"codeberg.org/oliverandrich/remind/internal/store"
)

var (
	ErrMissingSignupFields  = apperr.New(apperr.InvalidInput, "Email, password, and publicKey are required")
	ErrMissingLoginFields   = apperr.New(apperr.InvalidInput, "Email and password are required")
	ErrMissingCode          = apperr.New(apperr.InvalidInput, "Verification code is required")
	ErrMissingPasswords     = apperr.New(apperr.InvalidInput, "Current and new password are required")
	ErrPasswordTooLong      = apperr.New(apperr.InvalidInput, "Password must not exceed 72 bytes")
	ErrUserExists           = apperr.New(apperr.Conflict, "User already exists")
	ErrInvalidCredentials   = apperr.New(apperr.Unauthenticated, "Invalid credentials")
	ErrInvalidCode          = apperr.New(apperr.InvalidInput, "Invalid or expired verification code")
	ErrUserNotFound         = apperr.New(apperr.NotFound, "User not found")
	ErrAlreadyVerified      = apperr.New(apperr.InvalidInput, "User is already verified")
	ErrWrongCurrentPassword = apperr.New(apperr.Unauthenticated, "Current password is incorrect")
)

// Mailer delivers verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(p models.Principal) (string, error)
}

// SignupParams holds the parameters for account creation.
type SignupParams struct {
	Email     string
	Password  string
	PublicKey string
}

// Session is the outcome of a login or verification. Token is empty when
// NeedsVerification is set.
type Session struct {
	Token             string
	User              *models.User
	NeedsVerification bool
}

type Service struct {
	users  store.Users
	codes  *verification.Service
	hasher *Hasher
	tokens TokenIssuer
	mailer Mailer
}

func NewService(users store.Users, codes *verification.Service, hasher *Hasher, tokens TokenIssuer, mailer Mailer) *Service {
	return &Service{
		users:  users,
		codes:  codes,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,
	}
}

// Signup creates an unverified account and mails it a verification code.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*models.User, error) {
	if params.Email == "" || params.Password == "" || params.PublicKey == "" {
		return nil, ErrMissingSignupFields
	}

	// Skip the bcrypt work for addresses that are obviously taken
	_, err := s.users.GetUserByEmail(ctx, params.Email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, params.Email, passwordHash, params.PublicKey)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// The account exists now; login issues a fresh code if this one is lost.
	if err := s.sendCode(ctx, user.Email); err != nil {
		slog.ErrorContext(ctx, "verification_code_issue_failed", "user_id", user.ID, "error", err)
	}

	slog.InfoContext(ctx, "signup_success", "user_id", user.ID)
	return user, nil
}

// Login checks credentials. Verified accounts get a token; unverified ones get a fresh
// code and NeedsVerification.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingLoginFields
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.VerifyDummy(password)
		slog.WarnContext(ctx, "login_failed", "reason", "user_not_found")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		slog.WarnContext(ctx, "login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		if err := s.sendCode(ctx, user.Email); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "login_unverified", "user_id", user.ID)
		return &Session{User: user, NeedsVerification: true}, nil
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "login_success", "user_id", user.ID)
	return session, nil
}

// VerifyEmail consumes a code, marks its account verified and starts a session.
func (s *Service) VerifyEmail(ctx context.Context, code string) (*Session, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	email, err := s.codes.Validate(ctx, code)
	if errors.Is(err, verification.ErrInvalidCode) {
		slog.WarnContext(ctx, "verification_failed", "reason", "invalid_code")
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Verified {
		if err := s.users.MarkUserVerified(ctx, user.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to mark user verified: %w", err)
		}
		user.Verified = true
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "email_verified", "user_id", user.ID)
	return session, nil
}

// ResendVerification issues a new code for an unverified account.
func (s *Service) ResendVerification(ctx context.Context, p models.Principal) error {
	user, err := s.getUser(ctx, p.ID)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	if err := s.sendCode(ctx, user.Email); err != nil {
		return err
	}
	slog.InfoContext(ctx, "verification_resent", "user_id", user.ID)
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, p models.Principal, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrMissingPasswords
	}

	user, err := s.getUser(ctx, p.ID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		slog.WarnContext(ctx, "password_change_failed", "user_id", user.ID, "reason", "invalid_password")
		return ErrWrongCurrentPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdateUserPassword(ctx, user.ID, passwordHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.InfoContext(ctx, "password_changed", "user_id", user.ID)
	return nil
}

// DeleteAccount removes the account and everything it owns.
func (s *Service) DeleteAccount(ctx context.Context, p models.Principal) error {
	err := s.users.DeleteUser(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.InfoContext(ctx, "account_deleted", "user_id", p.ID)
	return nil
}

func (s *Service) getUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// sendCode issues a code for email and mails it. Delivery failures are logged only;
// the account can ask for another code.
func (s *Service) sendCode(ctx context.Context, email string) error {
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		slog.ErrorContext(ctx, "verification_email_failed", "error", err)
	}
	return nil
}

func (s *Service) newSession(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}
