package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pleasantco/authzd/internal/domain/authz"
)

// AuthzConfig contains the request gates and authorization cache settings.
type AuthzConfig struct {
	// AllowedNetworks is the comma-separated IPv4 ACL: hosts, CIDR blocks,
	// and lo|hi ranges, or * / 0.0.0.0 / 0.0.0.0/0 for allow-all.
	AllowedNetworks string `env:"AUTHZ_ALLOWED_NETWORKS" envDefault:"*"`

	// ACLReject404 answers disallowed networks with 404 instead of 403.
	ACLReject404 bool `env:"AUTHZ_ACL_REJECT_404" envDefault:"false"`

	// RateLimitRequests is the fixed-window request budget per client
	// address. Zero disables rate limiting.
	RateLimitRequests int `env:"AUTHZ_RATE_LIMIT_REQUESTS" envDefault:"120"`

	// RateLimitWindowSeconds is the fixed window length.
	RateLimitWindowSeconds int `env:"AUTHZ_RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`

	// EffectiveAuthTTLSeconds is how long a cached authorization snapshot
	// stays live.
	EffectiveAuthTTLSeconds int `env:"EFFECTIVEAUTH_TTL_SECONDS" envDefault:"300"`

	// StaleGraceSeconds serves an expired snapshot for this long when the
	// directory is unreachable. Zero disables stale serving.
	StaleGraceSeconds int `env:"EFFECTIVEAUTH_STALE_GRACE_SECONDS" envDefault:"0"`

	// WarmThresholdSeconds refreshes a snapshot in the background when it
	// has less than this much lifetime left. Zero disables warming.
	WarmThresholdSeconds int `env:"EFFECTIVEAUTH_WARM_THRESHOLD_SECONDS" envDefault:"0"`

	// DerivationRulesFile optionally points at a YAML file of permission
	// derivation rules.
	DerivationRulesFile string `env:"DERIVED_PERMISSION_RULES_FILE" envDefault:""`
}

// Sanitize applies guardrails to authz configuration values.
func (a *AuthzConfig) Sanitize() {
	if a.RateLimitRequests < 0 {
		a.RateLimitRequests = 0
	}
	if a.RateLimitWindowSeconds < 1 {
		a.RateLimitWindowSeconds = 60
	}
	if a.EffectiveAuthTTLSeconds < 1 {
		a.EffectiveAuthTTLSeconds = 300
	}
	if a.StaleGraceSeconds < 0 {
		a.StaleGraceSeconds = 0
	}
	if a.WarmThresholdSeconds < 0 {
		a.WarmThresholdSeconds = 0
	}
}

// RateLimitWindow returns the fixed window length as a duration.
func (a *AuthzConfig) RateLimitWindow() time.Duration {
	return time.Duration(a.RateLimitWindowSeconds) * time.Second
}

// EffectiveAuthTTL returns the snapshot TTL as a duration.
func (a *AuthzConfig) EffectiveAuthTTL() time.Duration {
	return time.Duration(a.EffectiveAuthTTLSeconds) * time.Second
}

// StaleGrace returns the stale-serving window as a duration.
func (a *AuthzConfig) StaleGrace() time.Duration {
	return time.Duration(a.StaleGraceSeconds) * time.Second
}

// WarmThreshold returns the background-refresh threshold as a duration.
func (a *AuthzConfig) WarmThreshold() time.Duration {
	return time.Duration(a.WarmThresholdSeconds) * time.Second
}

// LoadDerivationRules reads and validates the derivation rules file.
// Returns nil rules when no file is configured.
func (a *AuthzConfig) LoadDerivationRules() ([]authz.DerivationRule, error) {
	if a.DerivationRulesFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(a.DerivationRulesFile)
	if err != nil {
		return nil, fmt.Errorf("read derivation rules: %w", err)
	}

	var doc struct {
		Rules []authz.DerivationRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse derivation rules: %w", err)
	}
	rules, err := authz.NormalizeRules(doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("validate derivation rules: %w", err)
	}
	return rules, nil
}
