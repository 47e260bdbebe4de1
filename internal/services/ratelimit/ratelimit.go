// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratelimit counts requests per client in fixed windows. Store satisfies
// echo's middleware.RateLimiterStore.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults for the authentication and verification limiters.
const (
	AuthLimit    = 10
	AuthPeriod   = 15 * time.Minute
	VerifyLimit  = 5
	VerifyPeriod = 5 * time.Minute
)

type counter struct {
	count int
	start time.Time
}

// Store is a fixed-window counter keyed by client identifier.
type Store struct {
	mu       sync.Mutex
	limit    int
	period   time.Duration
	now      func() time.Time
	counters map[string]*counter
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store allowing limit requests per period for each identifier.
func New(limit int, period time.Duration, opts ...Option) *Store {
	s := &Store{
		limit:    limit,
		period:   period,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records a request for identifier and reports whether it is within the limit.
// A window starts with the first request and resets once period has passed.
func (s *Store) Allow(identifier string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[identifier]
	if !ok || !now.Before(c.start.Add(s.period)) {
		c = &counter{start: now}
		s.counters[identifier] = c
	}
	if c.count >= s.limit {
		return false, nil
	}
	c.count++
	return true, nil
}

// Sweep drops counters whose window has elapsed and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.counters {
		if !now.Before(c.start.Add(s.period)) {
			delete(s.counters, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
