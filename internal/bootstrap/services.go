package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pleasantco/authzd/config"
	"github.com/pleasantco/authzd/internal/adapters/devauth"
	"github.com/pleasantco/authzd/internal/adapters/devdir"
	"github.com/pleasantco/authzd/internal/adapters/googledir"
	"github.com/pleasantco/authzd/internal/adapters/memory"
	"github.com/pleasantco/authzd/internal/adapters/oidc"
	redisadapter "github.com/pleasantco/authzd/internal/adapters/redis"
	"github.com/pleasantco/authzd/internal/cache"
	"github.com/pleasantco/authzd/internal/domain/authz"
	"github.com/pleasantco/authzd/internal/netacl"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/ratelimit"
	"github.com/pleasantco/authzd/internal/service"
	"github.com/pleasantco/authzd/internal/session"
)

// ServiceDeps contains dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	// RedisClient is nil when no Redis backend is configured; the cache
	// then falls back to the in-process backend.
	RedisClient goredis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the initialized application services.
type ServiceContainer struct {
	Authz    *service.AuthzService
	Login    *service.LoginService
	Sessions *session.Manager
	Mapper   *authz.Mapper
	Fetcher  ports.DirectoryFetcher
}

// BuildServices wires adapters and services from configuration. In
// development mode the static directory and dev login provider replace the
// Workspace and OAuth integrations.
func BuildServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := cfg.Authz.LoadDerivationRules()
	if err != nil {
		return nil, fmt.Errorf("load derivation rules: %w", err)
	}
	mapper := authz.NewMapper(rules, logger)

	acl, err := netacl.Parse(cfg.Authz.AllowedNetworks)
	if err != nil {
		return nil, fmt.Errorf("parse allowed networks: %w", err)
	}

	var limiter *ratelimit.Limiter
	if cfg.Authz.RateLimitRequests > 0 {
		limiter = ratelimit.New(cfg.Authz.RateLimitRequests, cfg.Authz.RateLimitWindow())
	}

	sessions, err := buildSessionManager(cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher, err := buildDirectoryFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	verifier, provider, err := buildAuthAdapters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var backend ports.AuthCache
	if deps.RedisClient != nil {
		backend = redisadapter.NewAuthCacheWithPrefix(deps.RedisClient, cfg.Redis.KeyPrefix)
	} else {
		backend = memory.NewAuthCache()
		logger.Info("using in-process authorization cache")
	}

	store := cache.NewStore(cache.StoreOptions{
		Backend:       backend,
		Fetcher:       fetcher,
		Mapper:        mapper,
		TTL:           cfg.Authz.EffectiveAuthTTL(),
		StaleGrace:    cfg.Authz.StaleGrace(),
		WarmThreshold: cfg.Authz.WarmThreshold(),
		Logger:        logger,
	})

	authzSvc := service.NewAuthzService(service.AuthzServiceOptions{
		ACL:     acl,
		Limiter: limiter,
		Tokens:  service.NewTokenValidator(verifier, sessions),
		Store:   store,
		Logger:  logger,
	})
	loginSvc := service.NewLoginService(service.LoginServiceOptions{
		Provider: provider,
		Sessions: sessions,
		Store:    store,
	})

	return &ServiceContainer{
		Authz:    authzSvc,
		Login:    loginSvc,
		Sessions: sessions,
		Mapper:   mapper,
		Fetcher:  fetcher,
	}, nil
}

func buildSessionManager(cfg *config.AppConfig, logger *slog.Logger) (*session.Manager, error) {
	secret := cfg.Auth.SessionSecret
	if secret == "" && cfg.IsDev {
		// Ephemeral secret: sessions do not survive a dev restart.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate dev session secret: %w", err)
		}
		secret = base64.RawStdEncoding.EncodeToString(b)
		logger.Warn("SESSION_SECRET not set, generated an ephemeral development secret")
	}

	sessions, err := session.NewManager(secret, cfg.Auth.SessionTTL, cfg.Auth.SessionRefreshThreshold)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return sessions, nil
}

//nolint:ireturn // callers depend on the port, not the adapter.
func buildDirectoryFetcher(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (ports.DirectoryFetcher, error) {
	if cfg.IsDev {
		logger.Info("using static development directory", "user", cfg.Auth.DevUserEmail)
		return devdir.NewFetcher(map[string]devdir.User{
			cfg.Auth.DevUserEmail: {
				HomeDepartment:      "Engineering",
				IsDepartmentManager: true,
				Functions:           []string{"developer"},
				Groups:              []string{"developers@example.com"},
			},
		}), nil
	}

	key, err := os.ReadFile(cfg.Auth.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	fetcher, err := googledir.NewFetcher(ctx, googledir.Config{
		ServiceAccountJSON: key,
		DelegatedUser:      cfg.Auth.DelegatedUser,
		SchemaName:         cfg.Auth.AuthSchema,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("directory fetcher: %w", err)
	}
	return fetcher, nil
}

//nolint:ireturn // callers depend on the ports, not the adapters.
func buildAuthAdapters(ctx context.Context, cfg *config.AppConfig) (ports.IDTokenVerifier, ports.LoginProvider, error) {
	if cfg.IsDev {
		devCfg := devauth.Config{Email: cfg.Auth.DevUserEmail}
		verifier, err := devauth.NewVerifier(devCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("dev verifier: %w", err)
		}
		provider, err := devauth.NewProvider(devCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("dev login provider: %w", err)
		}
		return verifier, provider, nil
	}

	verifier, err := oidc.NewVerifier(ctx, oidc.VerifierConfig{
		IssuerURL:    cfg.Auth.OAuthIssuerURL,
		Audiences:    cfg.Auth.TokenAudiences,
		HostedDomain: cfg.Auth.HostedDomain,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token verifier: %w", err)
	}

	provider, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     cfg.Auth.OAuthClientID,
		ClientSecret: cfg.Auth.OAuthClientSecret,
		RedirectURL:  cfg.Auth.OAuthRedirectURL,
		IssuerURL:    cfg.Auth.OAuthIssuerURL,
		HostedDomain: cfg.Auth.HostedDomain,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("login provider: %w", err)
	}

	return verifier, provider, nil
}
