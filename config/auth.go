package config

import (
	"time"
)

// AuthConfig contains session, OAuth, and directory configuration.
type AuthConfig struct {
	// SessionSecret signs session tokens. At least 32 bytes. Required
	// outside development.
	SessionSecret string `env:"SESSION_SECRET" envDefault:""`

	// SessionTTL is the session token lifetime.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	// SessionRefreshThreshold reissues a session token when its remaining
	// lifetime drops below this. Zero disables refresh.
	SessionRefreshThreshold time.Duration `env:"SESSION_REFRESH_THRESHOLD" envDefault:"1h"`

	// OAuthClientID and OAuthClientSecret configure the browser login flow.
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"     envDefault:""`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET" envDefault:""`

	// OAuthRedirectURL is the absolute callback URL registered with the
	// provider, e.g. https://authz.example.com/auth/callback.
	OAuthRedirectURL string `env:"OAUTH_REDIRECT_URL" envDefault:""`

	// OAuthIssuerURL overrides the token issuer, for tests.
	OAuthIssuerURL string `env:"OAUTH_ISSUER_URL" envDefault:""`

	// TokenAudiences is the allow-list of aud values accepted on bearer
	// ID tokens. Defaults to OAuthClientID when empty.
	TokenAudiences []string `env:"TOKEN_AUDIENCES" envSeparator:"," envDefault:""`

	// HostedDomain restricts accepted accounts to one Workspace domain.
	HostedDomain string `env:"GOOGLE_HOSTED_DOMAIN" envDefault:""`

	// ServiceAccountFile is the Workspace service account key used for
	// directory reads with domain-wide delegation.
	ServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE" envDefault:""`

	// DelegatedUser is the Workspace admin the service account impersonates.
	DelegatedUser string `env:"GOOGLE_WORKSPACE_DELEGATED_USER" envDefault:""`

	// AuthSchema is the custom schema name carrying authorization fields.
	AuthSchema string `env:"GOOGLE_AUTH_SCHEMA" envDefault:"Authorization"`

	// DevUserEmail is the identity the dev login provider returns, and the
	// principal seeded into the dev directory.
	DevUserEmail string `env:"DEV_USER_EMAIL" envDefault:"dev.user@example.com"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = 12 * time.Hour
	}
	if a.SessionRefreshThreshold < 0 {
		a.SessionRefreshThreshold = 0
	}
	if len(a.TokenAudiences) == 0 && a.OAuthClientID != "" {
		a.TokenAudiences = []string{a.OAuthClientID}
	}
}
