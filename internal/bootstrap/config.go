package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/pleasantco/authzd/config"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig checks the settings that cannot be defaulted. Development
// mode relaxes the external-credential requirements so the service runs
// with the static directory and dev login provider.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.IsDev {
		return nil
	}

	var problems []string
	if len(cfg.Auth.SessionSecret) < 32 {
		problems = append(problems, "SESSION_SECRET must be at least 32 bytes")
	}
	if cfg.Auth.OAuthClientID == "" || cfg.Auth.OAuthClientSecret == "" {
		problems = append(problems, "OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required")
	}
	if cfg.Auth.OAuthRedirectURL == "" {
		problems = append(problems, "OAUTH_REDIRECT_URL is required")
	}
	if cfg.Auth.ServiceAccountFile == "" {
		problems = append(problems, "GOOGLE_SERVICE_ACCOUNT_FILE is required")
	}
	if cfg.Auth.DelegatedUser == "" {
		problems = append(problems, "GOOGLE_WORKSPACE_DELEGATED_USER is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
