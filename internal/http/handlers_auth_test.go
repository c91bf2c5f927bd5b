package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleasantco/authzd/internal/domain/auth"
	"github.com/pleasantco/authzd/internal/domain/authz"
	"github.com/pleasantco/authzd/internal/mocks"
	"github.com/pleasantco/authzd/internal/service"
	"github.com/pleasantco/authzd/internal/session"
	"github.com/pleasantco/authzd/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	handler  http.Handler
	sessions *session.Manager
	provider *mocks.MockLoginProvider
	clock    *testutil.Clock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	sessions, err := session.NewManager(testSecret, time.Hour, 10*time.Minute, session.WithClock(clock.Now))
	require.NoError(t, err)

	provider := &mocks.MockLoginProvider{
		Identity: auth.Identity{Subject: "sub-1", Email: "alice@example.com", CacheKey: "alice@example.com"},
	}
	store := &fixedStore{
		ea: authz.EffectiveAuth{
			Email:       "alice@example.com",
			Permissions: []string{"reports:read"},
		},
	}
	login := service.NewLoginService(service.LoginServiceOptions{
		Provider: provider,
		Sessions: sessions,
		Store:    store,
	})
	authzSvc := service.NewAuthzService(service.AuthzServiceOptions{
		Tokens: service.NewTokenValidator(&mocks.MockIDTokenVerifier{}, sessions),
		Store:  store,
		Logger: testutil.DiscardLogger(),
	})

	handler := NewRouter(RouterServices{
		Authz:    authzSvc,
		Login:    login,
		Sessions: sessions,
		Logger:   testutil.DiscardLogger(),
	})
	return &authFixture{handler: handler, sessions: sessions, provider: provider, clock: clock}
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginRedirectsToProvider(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/reports", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Location"))

	state := cookieByName(t, rec, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	require.NotNil(t, cookieByName(t, rec, "oauth_nonce"))
	redirect := cookieByName(t, rec, "post_login_redirect")
	require.NotNil(t, redirect)
	assert.Equal(t, "/reports", redirect.Value)
}

func TestLoginRejectsAbsoluteRedirect(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=https://evil.example.com/", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	redirect := cookieByName(t, rec, "post_login_redirect")
	require.NotNil(t, redirect)
	assert.Equal(t, "/", redirect.Value)
}

func TestCallbackIssuesSessionCookie(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "nonce-1"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/reports"})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/reports", rec.Header().Get("Location"))

	sessionCookie := cookieByName(t, rec, SessionCookieName)
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	sess, err := fx.sessions.Verify(sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.Email)

	// Temporary OAuth cookies are cleared.
	state := cookieByName(t, rec, "oauth_state")
	require.NotNil(t, state)
	assert.Equal(t, -1, state.MaxAge)
}

func TestCallbackStateMismatch(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "other-state"})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")
}

func TestCallbackMissingParams(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeReportsSession(t *testing.T) {
	fx := newAuthFixture(t)
	token, issued, err := fx.sessions.Issue(auth.Identity{Subject: "sub-1", Email: "alice@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	assert.Contains(t, rec.Body.String(), issued.ID)
	assert.Contains(t, rec.Body.String(), `"permissions":["reports:read"]`)
}

func TestMeRefreshesNearExpiry(t *testing.T) {
	fx := newAuthFixture(t)
	token, issued, err := fx.sessions.Issue(auth.Identity{Email: "alice@example.com"})
	require.NoError(t, err)

	fx.clock.Advance(55 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	fresh := cookieByName(t, rec, SessionCookieName)
	require.NotNil(t, fresh, "a near-expiry session gets a fresh cookie")

	sess, err := fx.sessions.Verify(fresh.Value)
	require.NoError(t, err)
	assert.NotEqual(t, issued.ID, sess.ID)
}

func TestMeWithoutSession(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	fx := newAuthFixture(t)
	token, _, err := fx.sessions.Issue(auth.Identity{Email: "alice@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieByName(t, rec, SessionCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, cleared.Value)
}
