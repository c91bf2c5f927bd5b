package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pleasantco/authzd/internal/domain/auth"
	"github.com/pleasantco/authzd/internal/domain/authz"
	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/service"
)

// AuthzHandlers provides HTTP handlers for the authorization endpoints.
type AuthzHandlers struct {
	Svc    *service.AuthzService
	Errors ErrorWriter
	Logger *slog.Logger
}

// resolveResponse is the POST /authz body: the caller's full snapshot.
type resolveResponse struct {
	Email               string    `json:"email"`
	HomeDepartment      string    `json:"home_department,omitempty"`
	IsDepartmentManager bool      `json:"is_department_manager"`
	Functions           []string  `json:"functions"`
	Permissions         []string  `json:"permissions"`
	Groups              []string  `json:"groups"`
	FetchedAt           time.Time `json:"fetched_at"`
	Source              string    `json:"source"`
}

// Resolve handles POST /authz: it returns the caller's effective
// authorization after the request gates pass. The token may arrive in the
// body envelope or via the header and cookie sources.
func (h *AuthzHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	var req tokenEnvelope
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Resolve(r.Context(), service.ResolveInput{
		ClientIP:    ClientIP(r),
		Credentials: req.credentials(r),
	})
	if err != nil {
		h.Errors.Write(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, newResolveResponse(res.EffectiveAuth, res.Source))
}

func newResolveResponse(ea authz.EffectiveAuth, source authz.Source) resolveResponse {
	return resolveResponse{
		Email:               ea.Email,
		HomeDepartment:      ea.HomeDepartment,
		IsDepartmentManager: ea.IsDepartmentManager,
		Functions:           emptyIfNil(ea.Functions),
		Permissions:         emptyIfNil(ea.Permissions),
		Groups:              emptyIfNil(ea.Groups),
		FetchedAt:           ea.FetchedAt,
		Source:              string(source),
	}
}

// checkRequest is the POST /authz/check body.
type checkRequest struct {
	tokenEnvelope

	Module string `json:"module"`
	Action string `json:"action"`
}

// Check handles POST /authz/check: a single permission question. A denied
// permission is answered 403 with the full decision payload so callers can
// still read permitted_actions; it is not an error condition internally.
func (h *AuthzHandlers) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Check(r.Context(), service.CheckInput{
		ResolveInput: service.ResolveInput{
			ClientIP:    ClientIP(r),
			Credentials: req.credentials(r),
		},
		Module: req.Module,
		Action: req.Action,
	})
	if err != nil {
		h.Errors.Write(w, err)
		return
	}
	if res.PermittedActions == nil {
		res.PermittedActions = []string{}
	}
	status := http.StatusOK
	if !res.Authorized {
		status = http.StatusForbidden
	}
	WriteJSON(w, status, res)
}

// probeRequest is the dev-only POST /authz/test body.
type probeRequest struct {
	Email string `json:"email"`
}

// probeResponse pairs the mapped document with the raw upstream payloads so
// schema problems can be diagnosed against real directory data.
type probeResponse struct {
	EffectiveAuth resolveResponse `json:"effective_auth"`
	RawUser       map[string]any  `json:"raw_user"`
	RawGroups     map[string]any  `json:"raw_groups"`
}

// ProbeHandlers serves the dev-only directory probe endpoint: fetch one
// principal straight from the directory, bypassing the cache, and run the
// mapper on the result.
type ProbeHandlers struct {
	Fetcher ports.DirectoryFetcher
	Mapper  *authz.Mapper
	Errors  ErrorWriter
}

// Probe handles POST /authz/test.
func (h *ProbeHandlers) Probe(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		h.Errors.Write(w, apperrors.MalformedRequest("email is required"))
		return
	}

	rec, err := h.Fetcher.Fetch(r.Context(), req.Email)
	if err != nil {
		h.Errors.Write(w, err)
		return
	}

	email := rec.PrimaryEmail
	if email == "" {
		email = auth.CanonicalPrincipal(req.Email)
	}
	ea := h.Mapper.Map(authz.MapperInput{
		Email:               email,
		HomeDepartment:      rec.HomeDepartment,
		IsDepartmentManager: rec.IsDepartmentManager,
		RawFunctions:        rec.RawFunctions,
		Groups:              rec.Groups,
		FetchedAt:           time.Now().UTC(),
	})
	WriteJSON(w, http.StatusOK, probeResponse{
		EffectiveAuth: newResolveResponse(ea, authz.SourceRefreshed),
		RawUser:       rec.RawUser,
		RawGroups:     rec.RawGroups,
	})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
