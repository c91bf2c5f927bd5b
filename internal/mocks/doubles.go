package mocks

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.DirectoryFetcher = (*MockDirectoryFetcher)(nil)
	_ ports.TokenValidator   = (*MockTokenValidator)(nil)
	_ ports.IDTokenVerifier  = (*MockIDTokenVerifier)(nil)
	_ ports.LoginProvider    = (*MockLoginProvider)(nil)
)

// MockDirectoryFetcher is a DirectoryFetcher double with an overridable
// fetch function and an atomic call counter, so tests can assert how many
// upstream calls a code path produced.
type MockDirectoryFetcher struct {
	FetchFunc func(ctx context.Context, principal string) (ports.DirectoryRecord, error)

	// Record is returned when FetchFunc is nil.
	Record ports.DirectoryRecord
	// Err is returned when FetchFunc is nil and Err is non-nil.
	Err error

	calls atomic.Int64
}

func (m *MockDirectoryFetcher) Fetch(ctx context.Context, principal string) (ports.DirectoryRecord, error) {
	m.calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, principal)
	}
	if m.Err != nil {
		return ports.DirectoryRecord{}, m.Err
	}
	rec := m.Record
	if rec.PrimaryEmail == "" {
		rec.PrimaryEmail = principal
	}
	return rec, nil
}

// Calls reports how many times Fetch has been invoked.
func (m *MockDirectoryFetcher) Calls() int {
	return int(m.calls.Load())
}

// MockTokenValidator is a TokenValidator double.
type MockTokenValidator struct {
	ValidateFunc func(ctx context.Context, creds ports.Credentials) (auth.Identity, error)

	// Identity is returned when ValidateFunc is nil.
	Identity auth.Identity
	// Err is returned when ValidateFunc is nil and Err is non-nil.
	Err error

	calls atomic.Int64
}

func (m *MockTokenValidator) Validate(ctx context.Context, creds ports.Credentials) (auth.Identity, error) {
	m.calls.Add(1)
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, creds)
	}
	if m.Err != nil {
		return auth.Identity{}, m.Err
	}
	return m.Identity, nil
}

// Calls reports how many times Validate has been invoked.
func (m *MockTokenValidator) Calls() int {
	return int(m.calls.Load())
}

// MockIDTokenVerifier is an IDTokenVerifier double.
type MockIDTokenVerifier struct {
	VerifyFunc func(ctx context.Context, raw string) (auth.Identity, error)

	Identity auth.Identity
	Err      error
}

func (m *MockIDTokenVerifier) VerifyIDToken(ctx context.Context, raw string) (auth.Identity, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, raw)
	}
	if m.Err != nil {
		return auth.Identity{}, m.Err
	}
	return m.Identity, nil
}

// MockLoginProvider is a LoginProvider double with deterministic state and
// nonce values.
type MockLoginProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (auth.Identity, error)

	AuthURL  string
	Identity auth.Identity

	beginCalls atomic.Int64
}

func (m *MockLoginProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	n := m.beginCalls.Add(1)
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp.example.com/auth"
	}
	state := "state-" + strconv.FormatInt(n, 10)
	nonce := "nonce-" + strconv.FormatInt(n, 10)
	return authURL, state, nonce, nil
}

func (m *MockLoginProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (auth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	if in.State == "" || in.Code == "" {
		return auth.Identity{}, apperrors.Unauthenticated("missing code or state")
	}
	id := m.Identity
	if id.Email == "" {
		id = auth.Identity{
			Subject:   "mock-sub-1",
			Email:     "mock.user@example.com",
			CacheKey:  "mock.user@example.com",
			ExpiresAt: time.Now().Add(time.Hour),
		}
	}
	return id, nil
}
