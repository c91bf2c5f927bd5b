package devauth

// Package devauth provides a config-driven LoginProvider for local
// development. It short-circuits the OAuth flow by redirecting straight to
// our own callback with locally generated state and nonce; Exchange ignores
// the code and returns the configured identity.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/pleasantco/authzd/internal/domain/auth"
	"github.com/pleasantco/authzd/internal/ports"
)

// Config controls the dev login provider behavior.
type Config struct {
	Subject string
	Email   string
	// TokenLifetime defaults to 8h when zero.
	TokenLifetime time.Duration
}

// Provider implements ports.LoginProvider for local development.
type Provider struct {
	subject  string
	email    string
	lifetime time.Duration
}

// NewProvider constructs a dev login provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "dev-user"
	}
	lifetime := cfg.TokenLifetime
	if lifetime == 0 {
		lifetime = 8 * time.Hour
	}
	return &Provider{
		subject:  subject,
		email:    domainauth.CanonicalPrincipal(cfg.Email),
		lifetime: lifetime,
	}, nil
}

// Begin returns a local callback URL and cryptographically secure state and
// nonce. The standard handler expects GET /auth/callback?code=...&state=...
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL := "/auth/callback?code=dev&state=" + state
	return authURL, state, nonce, nil
}

// Exchange ignores the code and returns the configured identity.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	return domainauth.Identity{
		Subject:   p.subject,
		Email:     p.email,
		CacheKey:  p.email,
		ExpiresAt: time.Now().Add(p.lifetime),
	}, nil
}

func randomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
