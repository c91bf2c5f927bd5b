package ports

// Package ports defines interfaces (hexagonal ports) for the authorization
// engine. Implementations live in internal/adapters; orchestration in
// internal/service.

import (
	"context"
	"time"

	domainauth "github.com/pleasantco/authzd/internal/domain/auth"
)

// DirectoryRecord is the raw identity data returned by the upstream
// directory for one principal, before normalization by the mapper.
type DirectoryRecord struct {
	PrimaryEmail        string
	HomeDepartment      string
	IsDepartmentManager bool
	// RawFunctions is the multi-line "User Functions" custom attribute.
	RawFunctions string
	Groups       []string

	// RawUser and RawGroups carry the unprocessed upstream payloads for
	// diagnostic endpoints. They never participate in mapping.
	RawUser   map[string]any
	RawGroups map[string]any
}

// DirectoryFetcher retrieves directory data for a principal. Implementations
// must distinguish transient upstream failures (retryable) from fatal ones
// such as an unknown principal.
type DirectoryFetcher interface {
	Fetch(ctx context.Context, principal string) (DirectoryRecord, error)
}

// AuthCache is the byte-level cache backend for serialized EffectiveAuth
// entries. Get returns nil with no error when the key is absent. The ttl on
// Set is an upper bound enforced by the backend; entry-level expiry is owned
// by the cache store.
type AuthCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Credentials carries the token material of one decision request. Exactly
// one field must be set; supplying both or neither is a malformed request.
type Credentials struct {
	IDToken      string
	SessionToken string
}

// TokenValidator validates inbound credentials and extracts the canonical
// principal identity.
type TokenValidator interface {
	Validate(ctx context.Context, creds Credentials) (domainauth.Identity, error)
}

// IDTokenVerifier verifies an external identity-provider token (signature,
// issuer, audience, expiry, hosted domain) and extracts the identity.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) (domainauth.Identity, error)
}

// BeginInput carries inputs for initiating a browser login flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the OAuth code exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// LoginProvider initiates and completes a browser authentication flow
// against the identity provider.
type LoginProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an
	// opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and
	// returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}
