package testutil

// Package testutil provides shared helpers for unit tests: a controllable
// clock for TTL and window assertions and a quiet logger.

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Clock is a controllable time source for tests. The zero value is unusable;
// create one with NewClock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock frozen at the given instant.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// DiscardLogger returns a logger that drops all records, for tests that do
// not assert on log output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
