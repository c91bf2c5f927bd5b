package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Identity represents the authenticated principal extracted from a validated
// token. Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject      string // stable subject identifier from the token (sub)
	Email        string // canonical lowercase email
	CacheKey     string // key under which EffectiveAuth is cached (lowercase email)
	HostedDomain string // Workspace hosted domain claim, when present
	ExpiresAt    time.Time
}

// Principal returns the cache key for this identity, falling back to the
// canonical email when the adapter set no explicit cache key.
func (i Identity) Principal() string {
	if i.CacheKey != "" {
		return i.CacheKey
	}
	return CanonicalPrincipal(i.Email)
}

// Session is the internal session issued at login and carried in a signed
// token. It never embeds EffectiveAuth, only the cache key that resolves it,
// so one upstream refresh is visible to every session for that principal.
type Session struct {
	ID        string    `json:"session_id"`
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	CacheKey  string    `json:"cache_key"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Principal returns the cache key for this session, falling back to the
// email when older tokens lack an explicit cache key.
func (s Session) Principal() string {
	if s.CacheKey != "" {
		return s.CacheKey
	}
	return CanonicalPrincipal(s.Email)
}

// CanonicalPrincipal normalizes an email into the canonical principal form
// used as the cache and session key.
func CanonicalPrincipal(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
