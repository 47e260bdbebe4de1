// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package cleanup runs the periodic maintenance jobs: purging expired verification codes
// and dropping elapsed rate-limit windows.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/robfig/cron/v3"
)

// Sweeper drops stale in-memory state and reports how many entries it removed.
type Sweeper interface {
	Sweep() int
}

// Result summarizes one cleanup run.
type Result struct {
	ExpiredCodes  int64
	RateLimitKeys int
}

type Service struct {
	codes    store.VerificationCodes
	sweepers []Sweeper
	now      func() time.Time
	cron     *cron.Cron
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSweepers registers in-memory stores to sweep on each run.
func WithSweepers(sweepers ...Sweeper) Option {
	return func(s *Service) {
		s.sweepers = append(s.sweepers, sweepers...)
	}
}

func NewService(codes store.VerificationCodes, opts ...Option) *Service {
	s := &Service{codes: codes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs a single cleanup pass.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	n, err := s.codes.DeleteExpiredVerificationCodes(ctx, s.now())
	if err != nil {
		return res, fmt.Errorf("failed to delete expired verification codes: %w", err)
	}
	res.ExpiredCodes = n

	for _, sw := range s.sweepers {
		res.RateLimitKeys += sw.Sweep()
	}

	slog.InfoContext(ctx, "cleanup_completed",
		"expired_codes", res.ExpiredCodes,
		"rate_limit_keys", res.RateLimitKeys,
	)
	return res, nil
}

// Start schedules RunOnce on the given cron spec, e.g. "@every 1h".
func (s *Service) Start(schedule string) error {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			slog.Error("cleanup_failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	s.cron = c
	c.Start()
	slog.Info("cleanup_scheduled", "schedule", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running job, or until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
