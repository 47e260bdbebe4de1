// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/remind/internal/middleware"
	"codeberg.org/oliverandrich/remind/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// Confirmation messages of the account endpoints.
const (
	MsgSignup             = "User created successfully. Please check your email for verification code."
	MsgNeedsVerification  = "Please verify your email. A new verification code has been sent."
	MsgVerificationResent = "Verification code sent successfully"
	MsgLoggedOut          = "Logged out successfully"
	MsgPasswordChanged    = "Password changed successfully"
	MsgAccountDeleted     = "Account deleted successfully"
)

// AuthHandlers contains handlers for authentication.
type AuthHandlers struct {
	auth *auth.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service) *AuthHandlers {
	return &AuthHandlers{auth: svc}
}

// SignupRequest is the request body for account creation.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	PublicKey string `json:"publicKey"`
}

// SignupResponse confirms account creation.
type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest is the request body for email verification.
type VerifyRequest struct {
	Code string `json:"code"`
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SessionUser is the account summary returned with a token.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionResponse carries a bearer token.
type SessionResponse struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// NeedsVerificationResponse is returned by login for unverified accounts.
type NeedsVerificationResponse struct {
	NeedsVerification bool   `json:"needsVerification"`
	Message           string `json:"message"`
}

// Signup creates an unverified account and mails a verification code.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Signup(c.Request().Context(), auth.SignupParams{
		Email:     req.Email,
		Password:  req.Password,
		PublicKey: req.PublicKey,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, SignupResponse{
		Message: MsgSignup,
		UserID:  strconv.FormatInt(user.ID, 10),
	})
}

// Login returns a token, or asks unverified accounts to verify first.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if session.NeedsVerification {
		return c.JSON(http.StatusOK, NeedsVerificationResponse{
			NeedsVerification: true,
			Message:           MsgNeedsVerification,
		})
	}
	return c.JSON(http.StatusOK, sessionResponse(session))
}

// VerifyEmail consumes a verification code and returns a token.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	var req VerifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.VerifyEmail(c.Request().Context(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse(session))
}

// ResendVerification mails a fresh code to the authenticated, unverified account.
func (h *AuthHandlers) ResendVerification(c echo.Context) error {
	if err := h.auth.ResendVerification(c.Request().Context(), middleware.Principal(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgVerificationResent})
}

// Logout acknowledges the logout. Tokens stay valid until they expire.
func (h *AuthHandlers) Logout(c echo.Context) error {
	slog.InfoContext(c.Request().Context(), "logout", "user_id", middleware.Principal(c).ID)
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgLoggedOut})
}

// ChangePassword replaces the password of the authenticated account.
func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := h.auth.ChangePassword(c.Request().Context(), middleware.Principal(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgPasswordChanged})
}

// DeleteAccount removes the authenticated account with everything it owns.
func (h *AuthHandlers) DeleteAccount(c echo.Context) error {
	if err := h.auth.DeleteAccount(c.Request().Context(), middleware.Principal(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgAccountDeleted})
}

func sessionResponse(s *auth.Session) SessionResponse {
	return SessionResponse{
		Token: s.Token,
		User: SessionUser{
			ID:    strconv.FormatInt(s.User.ID, 10),
			Email: s.User.Email,
		},
	}
}
