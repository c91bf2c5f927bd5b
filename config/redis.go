package config

// RedisConfig contains Redis configuration for the shared authorization
// cache. An empty Addr falls back to the in-process cache, which is fine
// for a single replica or development.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// KeyPrefix namespaces this deployment's cache entries.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"effectiveauth:"`
}

// Enabled reports whether a Redis backend is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}
