package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
)

// ProviderConfig holds configuration for the browser login flow.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes defaults to "openid email profile".
	Scopes string
	// IssuerURL defaults to GoogleIssuer.
	IssuerURL string
	// HostedDomain, when set, is passed as the hd hint and enforced on the
	// returned ID token.
	HostedDomain string
	HTTPClient   *http.Client
}

// Provider implements the LoginProvider port: it builds the authorization
// redirect and exchanges the returned code for a verified identity.
type Provider struct {
	config       *oauth2.Config
	verifier     *gooidc.IDTokenVerifier
	hostedDomain string
}

// NewProvider runs OIDC discovery and builds a login Provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = GoogleIssuer
	}
	scopes := strings.Fields(cfg.Scopes)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		hostedDomain: strings.ToLower(cfg.HostedDomain),
	}, nil
}

// Begin generates state and nonce and returns the authorization URL the
// browser should be redirected to.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	if p.hostedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", p.hostedDomain))
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", in.RedirectURL))
	}

	return p.config.AuthCodeURL(state, opts...), state, nonce, nil
}

// Exchange trades the authorization code for tokens and verifies the
// returned ID token, including the nonce and hosted-domain checks.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (auth.Identity, error) {
	if in.Code == "" {
		return auth.Identity{}, apperrors.Unauthenticated("authorization code is required").WithReason("missing_code")
	}
	if in.State == "" {
		return auth.Identity{}, apperrors.Unauthenticated("state is required").WithReason("missing_state")
	}

	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return auth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "code exchange failed")
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return auth.Identity{}, apperrors.Unauthenticated("token response has no id_token").WithReason("missing_token")
	}

	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return auth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "id token verification failed")
	}
	if in.Nonce != "" && idTok.Nonce != in.Nonce {
		return auth.Identity{}, apperrors.Unauthenticated("nonce mismatch").WithReason("invalid_nonce")
	}

	var claims idTokenClaims
	if err := idTok.Claims(&claims); err != nil {
		return auth.Identity{}, apperrors.Unauthenticated("id token claims undecodable").WithReason("invalid_token")
	}
	email := auth.CanonicalPrincipal(claims.Email)
	if email == "" {
		return auth.Identity{}, apperrors.Unauthenticated("id token has no email claim").WithReason("missing_email")
	}
	if p.hostedDomain != "" && strings.ToLower(claims.HostedDomain) != p.hostedDomain {
		return auth.Identity{}, apperrors.Unauthenticated("account outside the allowed domain").WithReason("wrong_domain")
	}

	expiresAt := time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}

	return auth.Identity{
		Subject:      idTok.Subject,
		Email:        email,
		CacheKey:     email,
		HostedDomain: claims.HostedDomain,
		ExpiresAt:    expiresAt,
	}, nil
}

// generateRandomString returns a URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		s += "0"
	}
	return s[:length], nil
}
