package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pleasantco/authzd/config"
)

func devConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.IsDev = true
	cfg.Auth.SessionTTL = 12 * time.Hour
	cfg.Auth.DevUserEmail = "dev.user@example.com"
	cfg.Authz.AllowedNetworks = "*"
	cfg.Authz.EffectiveAuthTTLSeconds = 300
	cfg.HTTP.Addr = ":0"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		require.Error(t, ValidateConfig(nil))
	})

	t.Run("dev mode skips credential checks", func(t *testing.T) {
		require.NoError(t, ValidateConfig(devConfig()))
	})

	t.Run("production requires credentials", func(t *testing.T) {
		cfg := devConfig()
		cfg.IsDev = false
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_SECRET")
		assert.Contains(t, err.Error(), "OAUTH_CLIENT_ID")
		assert.Contains(t, err.Error(), "GOOGLE_SERVICE_ACCOUNT_FILE")
	})

	t.Run("production with full credentials", func(t *testing.T) {
		cfg := devConfig()
		cfg.IsDev = false
		cfg.Auth.SessionSecret = "0123456789abcdef0123456789abcdef"
		cfg.Auth.OAuthClientID = "client-id"
		cfg.Auth.OAuthClientSecret = "client-secret"
		cfg.Auth.OAuthRedirectURL = "https://authz.example.com/auth/callback"
		cfg.Auth.ServiceAccountFile = "/etc/authzd/sa.json"
		cfg.Auth.DelegatedUser = "admin@example.com"
		require.NoError(t, ValidateConfig(cfg))
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 300, cfg.Authz.EffectiveAuthTTLSeconds)
}

func TestBuildServicesDevMode(t *testing.T) {
	services, err := BuildServices(context.Background(), &ServiceDeps{Config: devConfig()})
	require.NoError(t, err)
	require.NotNil(t, services.Authz)
	require.NotNil(t, services.Login)
	require.NotNil(t, services.Sessions)
	require.NotNil(t, services.Mapper)

	// The dev login flow works end to end against the static directory.
	begin, err := services.Login.BeginLogin(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, begin.AuthURL, "state="+begin.State)
}

func TestBuildServicesRejectsBadACL(t *testing.T) {
	cfg := devConfig()
	cfg.Authz.AllowedNetworks = "10.0.0.0/8,not-an-address"
	_, err := BuildServices(context.Background(), &ServiceDeps{Config: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed networks")
}
