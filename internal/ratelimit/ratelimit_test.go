package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pleasantco/authzd/internal/testutil"
)

func TestAllow_FixedWindowLimit(t *testing.T) {
	clock := testutil.NewClock(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	l := New(60, 60*time.Second, WithClock(clock.Now))

	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow("10.1.1.5"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow("10.1.1.5"), "61st request in the window must be rejected")

	clock.Advance(60 * time.Second)
	assert.True(t, l.Allow("10.1.1.5"), "request in the next window must be allowed")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	clock := testutil.NewClock(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	l := New(1, 60*time.Second, WithClock(clock.Now))

	assert.True(t, l.Allow("10.1.1.5"))
	assert.False(t, l.Allow("10.1.1.5"))
	assert.True(t, l.Allow("10.1.1.6"))
}

func TestAllow_WindowResetsFromCounterStart(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	clock := testutil.NewClock(start)
	l := New(2, 60*time.Second, WithClock(clock.Now))

	assert.True(t, l.Allow("k"))
	clock.Advance(59 * time.Second)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"), "still inside the first window")

	clock.Advance(time.Second)
	assert.True(t, l.Allow("k"), "window boundary crossed, counter reset")
}

func TestNew_ClampsConfig(t *testing.T) {
	l := New(0, 0)

	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"), "clamped limit of 1 rejects the second request")
}

func TestAllow_ConcurrentIncrementsAreAtomic(t *testing.T) {
	const limit = 500
	const workers = 50
	const perWorker = 20 // workers*perWorker == 2*limit

	clock := testutil.NewClock(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	l := New(limit, 60*time.Second, WithClock(clock.Now))

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if l.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load(), "no lost updates under concurrency")
}

func TestSweep_DropsStaleBuckets(t *testing.T) {
	clock := testutil.NewClock(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	l := New(10, time.Second, WithClock(clock.Now))

	for i := 0; i < 100; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	clock.Advance(5 * time.Second)
	l.sweep(clock.Now())

	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.buckets)
		s.mu.Unlock()
	}
	assert.Zero(t, total, "stale buckets are collected")
}
