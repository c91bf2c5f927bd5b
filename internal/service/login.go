package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/session"
)

// LoginServiceOptions groups dependencies for LoginService.
type LoginServiceOptions struct {
	Provider ports.LoginProvider
	Sessions *session.Manager
	Store    EffectiveAuthStore
}

// LoginService orchestrates the browser login flow: provider redirect,
// code exchange, and session issuance.
type LoginService struct {
	provider ports.LoginProvider
	sessions *session.Manager
	store    EffectiveAuthStore
}

// NewLoginService constructs a LoginService.
func NewLoginService(opts LoginServiceOptions) *LoginService {
	return &LoginService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		store:    opts.Store,
	}
}

// BeginLoginResult contains the provider auth URL with its state and nonce.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow.
func (s *LoginService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginResult carries the signed session token and its session.
type CompleteLoginResult struct {
	Token   string
	Session auth.Session
}

// CompleteLogin exchanges the authorization code, verifies the returned
// identity, and issues a session token.
func (s *LoginService) CompleteLogin(ctx context.Context, in ports.ExchangeInput) (*CompleteLoginResult, error) {
	if in.Code == "" || in.State == "" {
		return nil, apperrors.Unauthenticated("missing code or state").WithReason("invalid_callback")
	}

	identity, err := s.provider.Exchange(ctx, in)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "complete auth flow")
	}

	token, sess, err := s.sessions.Issue(identity)
	if err != nil {
		return nil, err
	}
	return &CompleteLoginResult{Token: token, Session: sess}, nil
}

// RefreshSession reissues a session token when its remaining lifetime has
// dropped below the refresh threshold. Returns nil when no refresh is due.
func (s *LoginService) RefreshSession(sess auth.Session) (*CompleteLoginResult, error) {
	if !s.sessions.RequiresRefresh(sess) {
		return nil, nil
	}
	token, fresh, err := s.sessions.Issue(auth.Identity{
		Subject:  sess.Subject,
		Email:    sess.Email,
		CacheKey: sess.CacheKey,
	})
	if err != nil {
		return nil, err
	}
	return &CompleteLoginResult{Token: token, Session: fresh}, nil
}

// Logout drops the principal's cached authorization so the next request
// re-reads the directory.
func (s *LoginService) Logout(ctx context.Context, sess auth.Session) error {
	if s.store == nil {
		return nil
	}
	return s.store.Invalidate(ctx, sess.Principal())
}
