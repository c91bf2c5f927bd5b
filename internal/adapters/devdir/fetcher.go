package devdir

// Package devdir provides a static, config-driven DirectoryFetcher for
// local development, so the service runs without Workspace credentials.

import (
	"context"
	"fmt"
	"strings"

	"github.com/pleasantco/authzd/internal/domain/auth"
	"github.com/pleasantco/authzd/internal/ports"
)

// User is one statically configured directory entry.
type User struct {
	HomeDepartment      string   `yaml:"home_department"`
	IsDepartmentManager bool     `yaml:"is_department_manager"`
	Functions           []string `yaml:"functions"`
	Groups              []string `yaml:"groups"`
}

// Fetcher serves directory records from a fixed map keyed by email.
type Fetcher struct {
	users map[string]User
}

// NewFetcher creates a static fetcher. Keys are canonicalized.
func NewFetcher(users map[string]User) *Fetcher {
	canonical := make(map[string]User, len(users))
	for email, u := range users {
		canonical[auth.CanonicalPrincipal(email)] = u
	}
	return &Fetcher{users: canonical}
}

// Fetch returns the configured record, or an error for unknown principals.
func (f *Fetcher) Fetch(_ context.Context, principal string) (ports.DirectoryRecord, error) {
	key := auth.CanonicalPrincipal(principal)
	u, ok := f.users[key]
	if !ok {
		return ports.DirectoryRecord{}, fmt.Errorf("dev directory has no user %s", key)
	}
	return ports.DirectoryRecord{
		PrimaryEmail:        key,
		HomeDepartment:      u.HomeDepartment,
		IsDepartmentManager: u.IsDepartmentManager,
		RawFunctions:        strings.Join(u.Functions, "\n"),
		Groups:              append([]string(nil), u.Groups...),
	}, nil
}
