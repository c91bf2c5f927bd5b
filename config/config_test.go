package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "*", cfg.Authz.AllowedNetworks)
	assert.False(t, cfg.Authz.ACLReject404)
	assert.Equal(t, 120, cfg.Authz.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.Authz.RateLimitWindow())
	assert.Equal(t, 5*time.Minute, cfg.Authz.EffectiveAuthTTL())
	assert.Zero(t, cfg.Authz.StaleGrace())
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "Authorization", cfg.Auth.AuthSchema)
	assert.False(t, cfg.Redis.Enabled())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUTHZ_ALLOWED_NETWORKS", "10.0.0.0/16,10.1.1.5")
	t.Setenv("AUTHZ_ACL_REJECT_404", "true")
	t.Setenv("EFFECTIVEAUTH_TTL_SECONDS", "60")
	t.Setenv("EFFECTIVEAUTH_STALE_GRACE_SECONDS", "30")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("OAUTH_CLIENT_ID", "client-a")
	t.Setenv("TOKEN_AUDIENCES", "client-a,client-b")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "10.0.0.0/16,10.1.1.5", cfg.Authz.AllowedNetworks)
	assert.True(t, cfg.Authz.ACLReject404)
	assert.Equal(t, time.Minute, cfg.Authz.EffectiveAuthTTL())
	assert.Equal(t, 30*time.Second, cfg.Authz.StaleGrace())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"client-a", "client-b"}, cfg.Auth.TokenAudiences)
}

func TestAudienceDefaultsToClientID(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_ID", "client-a")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, []string{"client-a"}, cfg.Auth.TokenAudiences)
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
}

func TestSanitizeClampsInvalidValues(t *testing.T) {
	cfg := AppConfig{
		Authz: AuthzConfig{
			RateLimitRequests:       -1,
			RateLimitWindowSeconds:  -1,
			EffectiveAuthTTLSeconds: 0,
			StaleGraceSeconds:       -5,
		},
		HTTP: HTTPConfig{MaxConns: -2},
	}
	cfg.Sanitize()

	assert.Zero(t, cfg.Authz.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.Authz.RateLimitWindow())
	assert.Equal(t, 5*time.Minute, cfg.Authz.EffectiveAuthTTL())
	assert.Zero(t, cfg.Authz.StaleGrace())
	assert.Zero(t, cfg.HTTP.MaxConns)
}

func TestLoadDerivationRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: managers get approvals
    when:
      manager: true
    grant:
      - "reports: approve"
`), 0o600))

	cfg := AuthzConfig{DerivationRulesFile: path}
	rules, err := cfg.LoadDerivationRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"reports:approve"}, rules[0].Grant)
}

func TestLoadDerivationRulesAbsentFile(t *testing.T) {
	cfg := AuthzConfig{}
	rules, err := cfg.LoadDerivationRules()
	require.NoError(t, err)
	assert.Nil(t, rules)

	cfg.DerivationRulesFile = "/nonexistent/rules.yaml"
	_, err = cfg.LoadDerivationRules()
	assert.Error(t, err)
}

func TestLoadDerivationRulesInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: empty grant
    grant: []
`), 0o600))

	cfg := AuthzConfig{DerivationRulesFile: path}
	_, err := cfg.LoadDerivationRules()
	assert.Error(t, err)
}
