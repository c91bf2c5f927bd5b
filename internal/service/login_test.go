package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/mocks"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/session"
	"github.com/pleasantco/authzd/internal/testutil"
)

func newLoginService(t *testing.T, clock *testutil.Clock, provider ports.LoginProvider, store EffectiveAuthStore) *LoginService {
	t.Helper()
	sessions, err := session.NewManager(testSessionSecret, time.Hour, 10*time.Minute, session.WithClock(clock.Now))
	require.NoError(t, err)
	return NewLoginService(LoginServiceOptions{
		Provider: provider,
		Sessions: sessions,
		Store:    store,
	})
}

func TestBeginLogin(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	svc := newLoginService(t, clock, &mocks.MockLoginProvider{}, nil)

	res, err := svc.BeginLogin(context.Background(), "https://app.example.com/auth/callback")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AuthURL)
	assert.NotEmpty(t, res.State)
	assert.NotEmpty(t, res.Nonce)
}

func TestCompleteLoginIssuesSession(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	provider := &mocks.MockLoginProvider{
		Identity: auth.Identity{Subject: "sub-1", Email: "Alice@Example.com", CacheKey: "alice@example.com"},
	}
	svc := newLoginService(t, clock, provider, nil)

	res, err := svc.CompleteLogin(context.Background(), ports.ExchangeInput{
		Code: "code", State: "state-1", Nonce: "nonce-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.Session.Email)
	assert.NotEmpty(t, res.Session.ID)
}

func TestCompleteLoginMissingCode(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	svc := newLoginService(t, clock, &mocks.MockLoginProvider{}, nil)

	_, err := svc.CompleteLogin(context.Background(), ports.ExchangeInput{State: "state-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
}

func TestCompleteLoginExchangeFailure(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	provider := &mocks.MockLoginProvider{
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (auth.Identity, error) {
			return auth.Identity{}, apperrors.Unauthenticated("nonce mismatch").WithReason("invalid_nonce")
		},
	}
	svc := newLoginService(t, clock, provider, nil)

	_, err := svc.CompleteLogin(context.Background(), ports.ExchangeInput{Code: "code", State: "state-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err))
	assert.Equal(t, "invalid_nonce", apperrors.GetReason(err))
}

func TestRefreshSession(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	svc := newLoginService(t, clock, &mocks.MockLoginProvider{}, nil)

	res, err := svc.CompleteLogin(context.Background(), ports.ExchangeInput{
		Code: "code", State: "state-1",
	})
	require.NoError(t, err)

	// Fresh session: nothing to do.
	refreshed, err := svc.RefreshSession(res.Session)
	require.NoError(t, err)
	assert.Nil(t, refreshed)

	// Near expiry: a new token is issued for the same principal.
	clock.Advance(55 * time.Minute)
	refreshed, err = svc.RefreshSession(res.Session)
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.Equal(t, res.Session.Email, refreshed.Session.Email)
	assert.NotEqual(t, res.Session.ID, refreshed.Session.ID)
}

func TestLogoutInvalidatesCache(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	store := &stubStore{}
	svc := newLoginService(t, clock, &mocks.MockLoginProvider{}, store)

	err := svc.Logout(context.Background(), auth.Session{Email: "alice@example.com", CacheKey: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, store.invalidated)
}
