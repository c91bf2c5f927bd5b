package devauth

import (
	"context"
	"time"

	domainauth "github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
)

// Verifier accepts any non-empty bearer token and returns the configured
// development identity. Development mode only.
type Verifier struct {
	subject  string
	email    string
	lifetime time.Duration
}

// NewVerifier builds a dev token verifier from the same Config as the dev
// login provider.
func NewVerifier(cfg Config) (*Verifier, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Verifier{subject: p.subject, email: p.email, lifetime: p.lifetime}, nil
}

// VerifyIDToken returns the configured identity for any non-empty token.
func (v *Verifier) VerifyIDToken(_ context.Context, raw string) (domainauth.Identity, error) {
	if raw == "" {
		return domainauth.Identity{}, apperrors.Unauthenticated("missing id token").WithReason("missing_token")
	}
	return domainauth.Identity{
		Subject:   v.subject,
		Email:     v.email,
		CacheKey:  v.email,
		ExpiresAt: time.Now().Add(v.lifetime),
	}, nil
}
