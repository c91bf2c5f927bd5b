package authz

import (
	"fmt"
)

// RuleCondition matches resolved directory attributes. Every set field must
// match; a condition with no fields set matches every principal, which makes
// the rule an unconditional grant.
type RuleCondition struct {
	// Department matches the principal's home department exactly.
	Department string `yaml:"department,omitempty"`
	// Manager matches the department-manager flag when set.
	Manager *bool `yaml:"manager,omitempty"`
}

// Matches reports whether the condition holds for the given attributes.
func (c RuleCondition) Matches(department string, manager bool) bool {
	if c.Department != "" && c.Department != department {
		return false
	}
	if c.Manager != nil && *c.Manager != manager {
		return false
	}
	return true
}

// DerivationRule grants additional permissions based on directory attributes
// rather than explicit function entries. Rules are evaluated in declaration
// order so the derived permission set is deterministic.
type DerivationRule struct {
	Name  string        `yaml:"name"`
	When  RuleCondition `yaml:"when"`
	Grant []string      `yaml:"grant"`
}

// NormalizeRules validates a rule table and normalizes every granted
// permission into slug form. It returns a new slice and leaves the input
// untouched.
func NormalizeRules(rules []DerivationRule) ([]DerivationRule, error) {
	normalized := make([]DerivationRule, 0, len(rules))
	for i, rule := range rules {
		if len(rule.Grant) == 0 {
			return nil, fmt.Errorf("derivation rule %d (%q) grants no permissions", i, rule.Name)
		}
		out := DerivationRule{Name: rule.Name, When: rule.When}
		for _, grant := range rule.Grant {
			perm, err := normalizePermission(grant)
			if err != nil {
				return nil, fmt.Errorf("derivation rule %d (%q): %w", i, rule.Name, err)
			}
			out.Grant = append(out.Grant, perm)
		}
		normalized = append(normalized, out)
	}
	return normalized, nil
}

// normalizePermission converts a "Module:Action" string into the normalized
// "module:action" slug form.
func normalizePermission(raw string) (string, error) {
	module, action, ok := splitFunction(raw)
	if !ok {
		return "", fmt.Errorf("permission %q is missing the module:action separator", raw)
	}
	return Slugify(module) + ":" + Slugify(action), nil
}
