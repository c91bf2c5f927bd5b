package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T, clock *testutil.Clock, ttl, refresh time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(testSecret, ttl, refresh, WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager("too-short", time.Hour, 0)
	require.Error(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clock, time.Hour, 0)

	token, issued, err := m.Issue(auth.Identity{
		Subject:  "sub-123",
		Email:    "Alice@Example.com",
		CacheKey: "alice@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, "alice@example.com", issued.Email)

	sess, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, sess.ID)
	assert.Equal(t, "sub-123", sess.Subject)
	assert.Equal(t, "alice@example.com", sess.Email)
	assert.Equal(t, "alice@example.com", sess.CacheKey)
	assert.Equal(t, "alice@example.com", sess.Principal())
	assert.True(t, sess.ExpiresAt.Equal(clock.Now().Add(time.Hour)))
}

func TestIssueUniqueSessionIDs(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m := newTestManager(t, clock, time.Hour, 0)

	_, a, err := m.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)
	_, b, err := m.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestVerifyExpiredToken(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clock, time.Hour, 0)

	token, _, err := m.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	_, err = m.Verify(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
	assert.Equal(t, "expired_token", apperrors.GetReason(err))
}

func TestVerifyTamperedToken(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m := newTestManager(t, clock, time.Hour, 0)

	token, _, err := m.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)

	// Flip the last signature byte.
	tampered := token[:len(token)-1]
	if strings.HasSuffix(token, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}
	_, err = m.Verify(tampered)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
	assert.Equal(t, "invalid_signature", apperrors.GetReason(err))
}

func TestVerifyWrongSecret(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m := newTestManager(t, clock, time.Hour, 0)
	other, err := NewManager("ffffffffffffffffffffffffffffffff", time.Hour, 0, WithClock(clock.Now))
	require.NoError(t, err)

	token, _, err := other.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
	assert.Equal(t, "invalid_signature", apperrors.GetReason(err))
}

func TestVerifyGarbage(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m := newTestManager(t, clock, time.Hour, 0)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.True(t, apperrors.IsUnauthenticated(err))
		assert.Equal(t, "malformed_token", apperrors.GetReason(err))
	}
}

func TestRequiresRefresh(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewClock(start)
	m := newTestManager(t, clock, time.Hour, 10*time.Minute)

	_, sess, err := m.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)
	assert.False(t, m.RequiresRefresh(sess))

	clock.Set(start.Add(51 * time.Minute))
	assert.True(t, m.RequiresRefresh(sess))
}

func TestRequiresRefreshDisabled(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m := newTestManager(t, clock, time.Hour, 0)

	_, sess, err := m.Issue(auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)
	clock.Advance(59 * time.Minute)
	assert.False(t, m.RequiresRefresh(sess))
}
