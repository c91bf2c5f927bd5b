package session

// Package session issues and verifies the service's own HS256-signed
// session tokens. These are distinct from provider ID tokens: once a
// caller has authenticated with the identity provider, a compact internal
// token carries the principal on subsequent requests.

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
)

// Claims is the session token payload.
type Claims struct {
	Email    string `json:"email"`
	CacheKey string `json:"cache_key"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens.
type Manager struct {
	secret           []byte
	ttl              time.Duration
	refreshThreshold time.Duration
	now              func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session Manager. The secret must be at least 32
// bytes. refreshThreshold is the remaining lifetime below which a session
// should be reissued; zero disables refresh.
func NewManager(secret string, ttl, refreshThreshold time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) < 32 {
		return nil, apperrors.Internal("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	m := &Manager{
		secret:           []byte(secret),
		ttl:              ttl,
		refreshThreshold: refreshThreshold,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL reports the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for the identity. The cache key falls
// back to the canonical email when the identity does not carry one.
func (m *Manager) Issue(identity auth.Identity) (string, auth.Session, error) {
	now := m.now()
	email := auth.CanonicalPrincipal(identity.Email)
	if email == "" {
		return "", auth.Session{}, apperrors.Internal("identity has no email")
	}
	cacheKey := auth.CanonicalPrincipal(identity.CacheKey)
	if cacheKey == "" {
		cacheKey = email
	}

	sess := auth.Session{
		ID:        uuid.NewString(),
		Subject:   identity.Subject,
		Email:     email,
		CacheKey:  cacheKey,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	claims := &Claims{
		Email:    sess.Email,
		CacheKey: sess.CacheKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Subject,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", auth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "session token signing failed")
	}
	return signed, sess, nil
}

// Verify parses and validates a session token. Failures surface as
// Unauthenticated with a reason distinguishing expiry from tampering.
func (m *Manager) Verify(raw string) (auth.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return auth.Session{}, apperrors.Unauthenticated("session expired").WithReason("expired_token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return auth.Session{}, apperrors.Unauthenticated("invalid session signature").WithReason("invalid_signature")
		default:
			return auth.Session{}, apperrors.Unauthenticated("malformed session token").WithReason("malformed_token")
		}
	}
	if !token.Valid {
		return auth.Session{}, apperrors.Unauthenticated("invalid session token").WithReason("invalid_token")
	}
	if claims.Email == "" {
		return auth.Session{}, apperrors.Unauthenticated("session token missing email").WithReason("malformed_token")
	}

	sess := auth.Session{
		ID:       claims.ID,
		Subject:  claims.Subject,
		Email:    auth.CanonicalPrincipal(claims.Email),
		CacheKey: auth.CanonicalPrincipal(claims.CacheKey),
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// RequiresRefresh reports whether the session's remaining lifetime has
// dropped below the refresh threshold.
func (m *Manager) RequiresRefresh(sess auth.Session) bool {
	if m.refreshThreshold <= 0 || sess.ExpiresAt.IsZero() {
		return false
	}
	return sess.ExpiresAt.Sub(m.now()) < m.refreshThreshold
}
