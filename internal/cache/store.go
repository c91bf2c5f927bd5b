package cache

// Package cache implements the effective-authorization cache in front of the
// directory. Reads are served from the backend while the entry is live;
// misses trigger a single-flighted refresh so concurrent requests for the
// same principal produce exactly one directory fetch.

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pleasantco/authzd/internal/domain/auth"
	"github.com/pleasantco/authzd/internal/domain/authz"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
)

// entry is the serialized cache payload. The deadline travels with the
// payload so expiry does not depend on backend TTL behavior.
type entry struct {
	EffectiveAuth authz.EffectiveAuth `json:"effective_auth"`
	ExpiresAt     time.Time           `json:"expires_at"`
}

// Mapper turns a raw directory record into an EffectiveAuth.
type Mapper interface {
	Map(in authz.MapperInput) authz.EffectiveAuth
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Backend ports.AuthCache
	Fetcher ports.DirectoryFetcher
	Mapper  Mapper

	// TTL is how long a refreshed entry stays live. Minimum one second.
	TTL time.Duration
	// StaleGrace optionally allows serving an expired entry for this long
	// past its deadline when a refresh fails. Zero disables stale serving.
	StaleGrace time.Duration
	// WarmThreshold optionally triggers a background refresh when a live
	// entry has less than this much lifetime left. Zero disables warming.
	WarmThreshold time.Duration

	Logger *slog.Logger
	Clock  func() time.Time
}

// Store is the caching layer between the authorization service and the
// directory fetcher.
type Store struct {
	backend ports.AuthCache
	fetcher ports.DirectoryFetcher
	mapper  Mapper
	ttl     time.Duration
	grace   time.Duration
	warm    time.Duration
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group
}

// NewStore creates a Store from opts, applying defaults for TTL, logger,
// and clock.
func NewStore(opts StoreOptions) *Store {
	if opts.TTL < time.Second {
		opts.TTL = 5 * time.Minute
	}
	if opts.StaleGrace < 0 {
		opts.StaleGrace = 0
	}
	if opts.WarmThreshold < 0 {
		opts.WarmThreshold = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		backend: opts.Backend,
		fetcher: opts.Fetcher,
		mapper:  opts.Mapper,
		ttl:     opts.TTL,
		grace:   opts.StaleGrace,
		warm:    opts.WarmThreshold,
		logger:  opts.Logger,
		now:     opts.Clock,
	}
}

type refreshResult struct {
	ea     authz.EffectiveAuth
	source authz.Source
}

// GetOrRefresh returns the principal's EffectiveAuth, serving from cache
// while the entry is live and refreshing from the directory otherwise.
// Concurrent misses for the same principal share one refresh. The refresh
// runs detached from the caller's context so a disconnecting client does
// not abort it for the other waiters.
func (s *Store) GetOrRefresh(ctx context.Context, principal string) (authz.EffectiveAuth, authz.Source, error) {
	key := auth.CanonicalPrincipal(principal)
	if key == "" {
		return authz.EffectiveAuth{}, "", apperrors.Internal("empty principal")
	}

	if ent, ok := s.liveLookup(ctx, key); ok {
		if s.warm > 0 && ent.ExpiresAt.Sub(s.now()) <= s.warm {
			s.warmAsync(key)
		}
		return ent.EffectiveAuth, authz.SourceCache, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// A refresh that completed while this caller queued may have
		// produced a live entry; serve it instead of fetching again.
		if ent, ok := s.liveLookup(ctx, key); ok {
			return refreshResult{ea: ent.EffectiveAuth, source: authz.SourceCache}, nil
		}
		return s.refresh(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return authz.EffectiveAuth{}, "", err
	}
	res := v.(refreshResult)
	return res.ea, res.source, nil
}

// Invalidate drops the principal's cached entry.
func (s *Store) Invalidate(ctx context.Context, principal string) error {
	key := auth.CanonicalPrincipal(principal)
	if key == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "cache invalidate failed")
	}
	return nil
}

// liveLookup returns the entry for key when one exists and has not passed
// its deadline. Backend errors are treated as a miss.
func (s *Store) liveLookup(ctx context.Context, key string) (entry, bool) {
	ent, ok := s.lookup(ctx, key)
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(ent.ExpiresAt) {
		// Expired. Keep it around while it could still back a grace
		// fallback; otherwise drop it now.
		if s.grace <= 0 || s.now().Sub(ent.ExpiresAt) >= s.grace {
			if err := s.backend.Delete(ctx, key); err != nil {
				s.logger.Warn("expired cache entry delete failed", "principal", key, "error", err)
			}
		}
		return entry{}, false
	}
	return ent, true
}

// staleLookup returns an expired entry still within the grace window.
func (s *Store) staleLookup(ctx context.Context, key string) (entry, bool) {
	if s.grace <= 0 {
		return entry{}, false
	}
	ent, ok := s.lookup(ctx, key)
	if !ok {
		return entry{}, false
	}
	if s.now().Before(ent.ExpiresAt.Add(s.grace)) {
		return ent, true
	}
	return entry{}, false
}

func (s *Store) lookup(ctx context.Context, key string) (entry, bool) {
	payload, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "principal", key, "error", err)
		return entry{}, false
	}
	if payload == nil {
		return entry{}, false
	}
	var ent entry
	if err := json.Unmarshal(payload, &ent); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "principal", key, "error", err)
		_ = s.backend.Delete(ctx, key)
		return entry{}, false
	}
	return ent, true
}

// refresh fetches the directory record, retrying exactly once on failure,
// maps it, and writes the new entry through to the backend. When both
// attempts fail an expired entry within the grace window is served instead.
func (s *Store) refresh(ctx context.Context, key string) (refreshResult, error) {
	rec, err := s.fetcher.Fetch(ctx, key)
	if err != nil {
		s.logger.Warn("directory fetch failed, retrying", "principal", key, "error", err)
		rec, err = s.fetcher.Fetch(ctx, key)
	}
	if err != nil {
		if ent, ok := s.staleLookup(ctx, key); ok {
			s.logger.Warn("serving stale entry after failed refresh",
				"principal", key,
				"expired_at", ent.ExpiresAt,
				"error", err)
			return refreshResult{ea: ent.EffectiveAuth, source: authz.SourceCache}, nil
		}
		return refreshResult{}, apperrors.Wrap(err, apperrors.ErrCodeUpstreamUnavailable, "directory fetch failed")
	}

	now := s.now()
	email := auth.CanonicalPrincipal(rec.PrimaryEmail)
	if email == "" {
		email = key
	}
	ea := s.mapper.Map(authz.MapperInput{
		Email:               email,
		HomeDepartment:      rec.HomeDepartment,
		IsDepartmentManager: rec.IsDepartmentManager,
		RawFunctions:        rec.RawFunctions,
		Groups:              rec.Groups,
		FetchedAt:           now,
	})

	ent := entry{EffectiveAuth: ea, ExpiresAt: now.Add(s.ttl)}
	payload, err := json.Marshal(ent)
	if err != nil {
		return refreshResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "cache entry encode failed")
	}
	if err := s.backend.Set(ctx, key, payload, s.ttl+s.grace); err != nil {
		// The fetched result is still good; the next request refreshes again.
		s.logger.Warn("cache write failed", "principal", key, "error", err)
	}
	return refreshResult{ea: ea, source: authz.SourceRefreshed}, nil
}

// warmAsync refreshes key in the background so a near-expiry entry is
// replaced before it lapses. Concurrent warms collapse through the same
// single-flight group as foreground refreshes.
func (s *Store) warmAsync(key string) {
	go func() {
		_, _, _ = s.group.Do(key, func() (any, error) {
			return s.refresh(context.WithoutCancel(context.Background()), key)
		})
	}()
}
