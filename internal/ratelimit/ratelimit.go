package ratelimit

// Package ratelimit implements the per-client fixed-window request limiter
// that sheds abusive traffic before token validation runs.

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	shardCount = 32
	// sweepEvery bounds how often stale buckets are garbage collected;
	// collection happens inline on the calling goroutine.
	sweepEvery = 4096
)

type bucket struct {
	count       int
	windowStart time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// Limiter counts requests per client key within a fixed window. Counting is
// atomic per key; keys hash onto independent shards so one busy client does
// not serialize unrelated clients.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	shards [shardCount]*shard
	ops    atomic.Uint64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing `limit` requests per `window` for each
// client key. Limit and window are clamped to sane minima.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if window < time.Second {
		window = time.Second
	}
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for the client key and reports whether it is
// within the limit for the current window. The counter resets lazily when
// the window boundary has passed since the counter's start.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	s := l.shard(key)

	s.mu.Lock()
	b := s.buckets[key]
	if b == nil {
		b = &bucket{windowStart: now}
		s.buckets[key] = b
	} else if now.Sub(b.windowStart) >= l.window {
		b.count = 0
		b.windowStart = now
	}
	b.count++
	allowed := b.count <= l.limit
	s.mu.Unlock()

	if l.ops.Add(1)%sweepEvery == 0 {
		l.sweep(now)
	}
	return allowed
}

// shard maps a client key onto its lock shard.
func (l *Limiter) shard(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

// sweep drops buckets unseen for at least two full windows so memory stays
// bounded by the active-client count.
func (l *Limiter) sweep(now time.Time) {
	cutoff := 2 * l.window
	for _, s := range l.shards {
		s.mu.Lock()
		for key, b := range s.buckets {
			if now.Sub(b.windowStart) >= cutoff {
				delete(s.buckets, key)
			}
		}
		s.mu.Unlock()
	}
}
