package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pleasantco/authzd/internal/domain/auth"
	"github.com/pleasantco/authzd/internal/domain/authz"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/netacl"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/ratelimit"
)

// EffectiveAuthStore is the cache layer the service resolves principals
// through.
type EffectiveAuthStore interface {
	GetOrRefresh(ctx context.Context, principal string) (authz.EffectiveAuth, authz.Source, error)
	Invalidate(ctx context.Context, principal string) error
}

// AuthzServiceOptions groups dependencies for AuthzService.
type AuthzServiceOptions struct {
	ACL     *netacl.ACL
	Limiter *ratelimit.Limiter
	Tokens  ports.TokenValidator
	Store   EffectiveAuthStore
	Logger  *slog.Logger
}

// AuthzService runs the request gates in order (network ACL, rate limit,
// credentials) and then answers authorization questions from the cache.
// A denied permission is a normal outcome, not an error.
type AuthzService struct {
	acl     *netacl.ACL
	limiter *ratelimit.Limiter
	tokens  ports.TokenValidator
	store   EffectiveAuthStore
	logger  *slog.Logger
}

// NewAuthzService constructs an AuthzService.
func NewAuthzService(opts AuthzServiceOptions) *AuthzService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthzService{
		acl:     opts.ACL,
		limiter: opts.Limiter,
		tokens:  opts.Tokens,
		store:   opts.Store,
		logger:  logger,
	}
}

// ResolveInput carries the per-request facts the gates need.
type ResolveInput struct {
	ClientIP    string
	Credentials ports.Credentials
}

// ResolveResult is a principal's full authorization snapshot.
type ResolveResult struct {
	Identity      auth.Identity
	EffectiveAuth authz.EffectiveAuth
	Source        authz.Source
}

// Resolve runs the gates and returns the caller's effective authorization.
func (s *AuthzService) Resolve(ctx context.Context, in ResolveInput) (ResolveResult, error) {
	identity, err := s.gate(ctx, in)
	if err != nil {
		return ResolveResult{}, err
	}

	ea, source, err := s.store.GetOrRefresh(ctx, identity.Principal())
	if err != nil {
		return ResolveResult{}, err
	}
	return ResolveResult{Identity: identity, EffectiveAuth: ea, Source: source}, nil
}

// CheckInput is a single permission question.
type CheckInput struct {
	ResolveInput
	Module string
	Action string
}

// Check evaluates module:action for the caller. The permitted actions list
// always reflects the module's verb subset, including on denial.
func (s *AuthzService) Check(ctx context.Context, in CheckInput) (authz.CheckResult, error) {
	module := strings.TrimSpace(in.Module)
	if module == "" {
		return authz.CheckResult{}, apperrors.MalformedRequest("module is required")
	}
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if action == "" {
		return authz.CheckResult{}, apperrors.MalformedRequest("action is required")
	}
	if !authz.IsValidAction(action) {
		return authz.CheckResult{}, apperrors.MalformedRequestf("unknown action %q", action)
	}

	res, err := s.Resolve(ctx, in.ResolveInput)
	if err != nil {
		return authz.CheckResult{}, err
	}

	moduleSlug := authz.Slugify(module)
	permission := moduleSlug + ":" + action
	authorized := res.EffectiveAuth.HasPermission(permission)

	decision := authz.DecisionDenied
	reason := authz.ReasonPermissionMissing
	if authorized {
		decision = authz.DecisionGranted
		reason = ""
	} else {
		s.logger.Info("permission denied",
			"principal", res.EffectiveAuth.Email,
			"permission", permission)
	}

	return authz.CheckResult{
		Authorized:          authorized,
		Decision:            decision,
		Reason:              reason,
		EvaluatedPermission: permission,
		PermittedActions:    res.EffectiveAuth.PermittedActions(moduleSlug),
		Source:              res.Source,
	}, nil
}

// Invalidate drops the principal's cached authorization.
func (s *AuthzService) Invalidate(ctx context.Context, principal string) error {
	return s.store.Invalidate(ctx, principal)
}

// gate applies the network ACL, the rate limit, and credential validation,
// in that order.
func (s *AuthzService) gate(ctx context.Context, in ResolveInput) (auth.Identity, error) {
	if s.acl != nil && !s.acl.AllowAll() {
		if !s.acl.AllowsHost(in.ClientIP) {
			s.logger.Warn("client address rejected", "client_ip", in.ClientIP)
			return auth.Identity{}, apperrors.ACLRejected("client address not allowed")
		}
	}
	if s.limiter != nil && !s.limiter.Allow(in.ClientIP) {
		return auth.Identity{}, apperrors.RateLimited("too many requests")
	}
	return s.tokens.Validate(ctx, in.Credentials)
}
