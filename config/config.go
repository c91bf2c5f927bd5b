package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Sessions, OAuth, and the Workspace directory
//   - authz.go: Request gates and the authorization cache
//   - http.go: HTTP server configuration
//   - redis.go: Redis configuration
type AppConfig struct {
	// IsDev controls development mode behavior: the static dev directory,
	// the dev login provider, and the mapper probe endpoint.
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth  AuthConfig
	Authz AuthzConfig
	HTTP  HTTPConfig
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call it after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Authz.Sanitize()
	c.HTTP.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
