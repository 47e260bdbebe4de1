// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification issues and checks the numeric codes sent for email verification.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/remind/internal/store"
)

const (
	// CodeMin and CodeMax bound the six-digit codes, inclusive.
	CodeMin = 100000
	CodeMax = 999999
	// DefaultTTL is how long a code stays valid.
	DefaultTTL = 15 * time.Minute
)

// ErrInvalidCode is returned for unknown, used and expired codes alike.
var ErrInvalidCode = errors.New("invalid or expired verification code")

// Service handles verification code generation and validation.
type Service struct {
	codes store.VerificationCodes
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a verification service. A non-positive ttl means DefaultTTL.
func NewService(codes store.VerificationCodes, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{codes: codes, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns how long issued codes stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Generate returns a code drawn uniformly from [CodeMin, CodeMax].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(CodeMax-CodeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+CodeMin, 10), nil
}

// Issue stores a fresh code for email, replacing any earlier one, and returns it.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", err
	}
	if err := s.codes.ReplaceVerificationCode(ctx, email, code, s.now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}
	return code, nil
}

// Validate consumes code and returns the email it was issued for.
func (s *Service) Validate(ctx context.Context, code string) (string, error) {
	email, err := s.codes.ConsumeVerificationCode(ctx, code, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", fmt.Errorf("failed to check verification code: %w", err)
	}
	return email, nil
}
