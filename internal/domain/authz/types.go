package authz

// Package authz contains the pure authorization domain: the EffectiveAuth
// document, the permission vocabulary, and the mapping from raw directory
// attributes into normalized permissions.

import (
	"sort"
	"strings"
	"time"
)

// Source reports where a resolved EffectiveAuth came from.
type Source string

const (
	// SourceCache means a live cached document was served.
	SourceCache Source = "cache"
	// SourceRefreshed means the document was produced by an upstream fetch.
	SourceRefreshed Source = "refreshed"
)

// Decision is the outcome of a permission check. Denial is a normal business
// outcome, not an error.
type Decision string

const (
	DecisionGranted Decision = "granted"
	DecisionDenied  Decision = "denied"
)

// Actions is the fixed verb vocabulary accepted by permission checks.
// Any other verb is a client error and is never evaluated.
var Actions = []string{"create", "read", "update", "delete", "list", "approve", "manage"}

// IsValidAction reports whether action is part of the fixed verb set.
func IsValidAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

// EffectiveAuth is the normalized authorization document for one principal.
//
// Permissions is kept sorted and unique so that identical inputs always
// serialize to identical documents.
type EffectiveAuth struct {
	Email               string    `json:"email"`
	HomeDepartment      string    `json:"home_department,omitempty"`
	IsDepartmentManager bool      `json:"is_department_manager"`
	Functions           []string  `json:"functions"`
	Permissions         []string  `json:"permissions"`
	Groups              []string  `json:"groups"`
	FetchedAt           time.Time `json:"fetched_at"`
}

// HasPermission reports whether the normalized permission string is present.
func (e EffectiveAuth) HasPermission(permission string) bool {
	i := sort.SearchStrings(e.Permissions, permission)
	return i < len(e.Permissions) && e.Permissions[i] == permission
}

// PermittedActions returns every permission entry whose module prefix equals
// the given module slug, so callers can cache the full verb set for a module
// without re-querying per verb. The result preserves the sorted permission
// order.
func (e EffectiveAuth) PermittedActions(module string) []string {
	prefix := module + ":"
	permitted := make([]string, 0)
	for _, p := range e.Permissions {
		if strings.HasPrefix(p, prefix) {
			permitted = append(permitted, strings.TrimPrefix(p, prefix))
		}
	}
	return permitted
}

// ReasonPermissionMissing explains a denied check: the evaluated permission
// is not in the principal's set.
const ReasonPermissionMissing = "permission_missing"

// CheckResult is the outcome of evaluating one module/action pair against a
// principal's EffectiveAuth.
type CheckResult struct {
	Authorized          bool     `json:"authorized"`
	Decision            Decision `json:"decision"`
	Reason              string   `json:"reason,omitempty"`
	EvaluatedPermission string   `json:"evaluated_permission"`
	PermittedActions    []string `json:"permitted_actions"`
	Source              Source   `json:"source"`
}

// Slugify normalizes a free-form module or action name into the permission
// slug form: trimmed, lowercase, spaces collapsed to single underscores.
func Slugify(value string) string {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}
	return cleaned
}
