package service

import (
	"context"

	"github.com/pleasantco/authzd/internal/domain/auth"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/session"
)

// TokenValidator resolves caller credentials to an identity. Exactly one of
// the two credential kinds must be presented: a provider ID token or one of
// our own session tokens.
type TokenValidator struct {
	verifier ports.IDTokenVerifier
	sessions *session.Manager
}

// NewTokenValidator constructs a TokenValidator.
func NewTokenValidator(verifier ports.IDTokenVerifier, sessions *session.Manager) *TokenValidator {
	return &TokenValidator{verifier: verifier, sessions: sessions}
}

// Validate checks the credentials and returns the caller's identity.
func (v *TokenValidator) Validate(ctx context.Context, creds ports.Credentials) (auth.Identity, error) {
	hasID := creds.IDToken != ""
	hasSession := creds.SessionToken != ""

	switch {
	case hasID && hasSession:
		return auth.Identity{}, apperrors.MalformedRequest("provide either an id token or a session token, not both")
	case hasID:
		return v.verifier.VerifyIDToken(ctx, creds.IDToken)
	case hasSession:
		sess, err := v.sessions.Verify(creds.SessionToken)
		if err != nil {
			return auth.Identity{}, err
		}
		return auth.Identity{
			Subject:   sess.Subject,
			Email:     sess.Email,
			CacheKey:  sess.CacheKey,
			ExpiresAt: sess.ExpiresAt,
		}, nil
	default:
		return auth.Identity{}, apperrors.MalformedRequest("missing credentials")
	}
}
