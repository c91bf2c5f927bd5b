package oidc

// Package oidc provides the identity-provider adapters: bearer ID token
// verification for API callers and the browser login flow.

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
)

// GoogleIssuer is the default token issuer.
const GoogleIssuer = "https://accounts.google.com"

// VerifierConfig holds configuration for the ID token verifier.
type VerifierConfig struct {
	// IssuerURL defaults to GoogleIssuer.
	IssuerURL string
	// Audiences is the allow-list of acceptable aud values. Required.
	Audiences []string
	// HostedDomain, when set, restricts tokens to that Workspace domain.
	HostedDomain string
	// HTTPClient is optional and defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// Verifier validates provider-issued ID tokens presented as bearer
// credentials. Signature and issuer checks are delegated to go-oidc;
// audience is checked against the allow-list here because a single
// deployment accepts tokens minted for several client IDs.
type Verifier struct {
	verifier     *gooidc.IDTokenVerifier
	audiences    []string
	hostedDomain string
}

// NewVerifier runs OIDC discovery against the issuer and builds a Verifier.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if len(cfg.Audiences) == 0 {
		return nil, errors.New("at least one audience is required")
	}
	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = GoogleIssuer
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	provider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "oidc discovery failed")
	}

	return &Verifier{
		verifier:     provider.Verifier(&gooidc.Config{SkipClientIDCheck: true}),
		audiences:    cfg.Audiences,
		hostedDomain: strings.ToLower(cfg.HostedDomain),
	}, nil
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	HostedDomain  string `json:"hd"`
}

// VerifyIDToken validates a raw ID token and returns the caller's identity.
// All failures surface as Unauthenticated; the reason distinguishes expiry,
// issuer, audience, and domain rejections.
func (v *Verifier) VerifyIDToken(ctx context.Context, raw string) (auth.Identity, error) {
	if raw == "" {
		return auth.Identity{}, apperrors.Unauthenticated("missing id token").WithReason("missing_token")
	}

	idTok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *gooidc.TokenExpiredError
		if errors.As(err, &expired) {
			return auth.Identity{}, apperrors.Unauthenticated("id token expired").WithReason("expired_token")
		}
		// go-oidc reports a foreign issuer as "oidc: id token issued by a
		// different provider"; it exposes no typed error for this case.
		if strings.Contains(err.Error(), "issued by a different provider") {
			return auth.Identity{}, apperrors.Unauthenticated("id token issuer not accepted").WithReason("wrong_issuer")
		}
		return auth.Identity{}, apperrors.Unauthenticated("id token verification failed").WithReason("invalid_token")
	}

	if !v.audienceAllowed(idTok.Audience) {
		return auth.Identity{}, apperrors.Unauthenticated("id token audience not accepted").WithReason("wrong_audience")
	}

	var claims idTokenClaims
	if err := idTok.Claims(&claims); err != nil {
		return auth.Identity{}, apperrors.Unauthenticated("id token claims undecodable").WithReason("invalid_token")
	}
	email := auth.CanonicalPrincipal(claims.Email)
	if email == "" {
		return auth.Identity{}, apperrors.Unauthenticated("id token has no email claim").WithReason("missing_email")
	}
	if !claims.EmailVerified {
		return auth.Identity{}, apperrors.Unauthenticated("id token email not verified").WithReason("unverified_email")
	}
	if v.hostedDomain != "" && strings.ToLower(claims.HostedDomain) != v.hostedDomain {
		return auth.Identity{}, apperrors.Unauthenticated("id token hosted domain not accepted").WithReason("wrong_domain")
	}

	return auth.Identity{
		Subject:      idTok.Subject,
		Email:        email,
		CacheKey:     email,
		HostedDomain: claims.HostedDomain,
		ExpiresAt:    idTok.Expiry,
	}, nil
}

func (v *Verifier) audienceAllowed(tokenAud []string) bool {
	for _, aud := range tokenAud {
		if slices.Contains(v.audiences, aud) {
			return true
		}
	}
	return false
}
