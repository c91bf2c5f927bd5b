package authz

import (
	"log/slog"
	"sort"
	"strings"
	"time"
)

// MapperInput carries the raw directory attributes for one principal.
// Directory data is operator-controlled and loosely shaped; the mapper is the
// boundary where it becomes a validated internal document.
type MapperInput struct {
	Email               string
	HomeDepartment      string
	IsDepartmentManager bool
	// RawFunctions is the multi-line "User Functions" directory attribute,
	// one "Module:Action" declaration per line.
	RawFunctions string
	Groups       []string
	FetchedAt    time.Time
}

// Mapper deterministically transforms raw directory attributes into an
// EffectiveAuth document. It performs no I/O; re-running it on identical
// inputs yields an identical permissions set.
type Mapper struct {
	rules  []DerivationRule
	logger *slog.Logger
}

// NewMapper creates a Mapper with the given derivation rule table. Rules must
// already be normalized via NormalizeRules.
func NewMapper(rules []DerivationRule, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{rules: rules, logger: logger}
}

// Map produces the EffectiveAuth document for the given input.
//
// Function lines are preserved verbatim (order and duplicates included);
// permissions are the normalized, deduplicated union of the well-formed
// function lines and any matching derivation-rule grants. Malformed lines
// are skipped and logged, never fatal.
func (m *Mapper) Map(in MapperInput) EffectiveAuth {
	functions := splitFunctionLines(in.RawFunctions)

	permissions := make(map[string]struct{})
	for _, fn := range functions {
		module, action, ok := splitFunction(fn)
		if !ok {
			m.logger.Warn("skipping malformed function entry",
				slog.String("entry", fn),
				slog.String("principal", in.Email))
			continue
		}
		permissions[Slugify(module)+":"+Slugify(action)] = struct{}{}
	}

	for _, rule := range m.rules {
		if !rule.When.Matches(in.HomeDepartment, in.IsDepartmentManager) {
			continue
		}
		for _, grant := range rule.Grant {
			permissions[grant] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(permissions))
	for p := range permissions {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	groups := make([]string, len(in.Groups))
	copy(groups, in.Groups)

	return EffectiveAuth{
		Email:               strings.ToLower(strings.TrimSpace(in.Email)),
		HomeDepartment:      in.HomeDepartment,
		IsDepartmentManager: in.IsDepartmentManager,
		Functions:           functions,
		Permissions:         sorted,
		Groups:              groups,
		FetchedAt:           in.FetchedAt,
	}
}

// splitFunctionLines splits the raw functions attribute on line breaks,
// trims each line, and drops empties while preserving order and duplicates.
func splitFunctionLines(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	functions := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		functions = append(functions, trimmed)
	}
	return functions
}

// splitFunction splits a "Module:Action" declaration at its first colon.
func splitFunction(fn string) (module, action string, ok bool) {
	module, action, ok = strings.Cut(fn, ":")
	if !ok || strings.TrimSpace(module) == "" || strings.TrimSpace(action) == "" {
		return "", "", false
	}
	return module, action, true
}
