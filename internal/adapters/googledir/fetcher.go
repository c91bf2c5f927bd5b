package googledir

// Package googledir fetches directory records from the Google Workspace
// Admin SDK using a service account with domain-wide delegation.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pleasantco/authzd/internal/ports"
)

// Directory API scopes. Read-only: the service never mutates the directory.
var scopes = []string{
	"https://www.googleapis.com/auth/admin.directory.user.readonly",
	"https://www.googleapis.com/auth/admin.directory.group.readonly",
}

const defaultEndpoint = "https://admin.googleapis.com/admin/directory/v1"

// DefaultSchemaName is the custom schema carrying authorization fields.
const DefaultSchemaName = "Authorization"

// Custom schema field names.
const (
	fieldHomeDepartment = "HomeDepartment"
	fieldUserFunctions  = "UserFunctions"
	fieldManager        = "DepartmentManager"
)

// Config holds configuration for the directory fetcher.
type Config struct {
	// ServiceAccountJSON is the service account key file contents.
	ServiceAccountJSON []byte
	// DelegatedUser is the Workspace admin the service account impersonates.
	DelegatedUser string
	// SchemaName defaults to DefaultSchemaName.
	SchemaName string
	// Endpoint overrides the Admin SDK base URL, for tests.
	Endpoint string
	// HTTPTimeout defaults to 15s.
	HTTPTimeout time.Duration

	Logger *slog.Logger
}

// Fetcher implements the DirectoryFetcher port against the Admin SDK.
type Fetcher struct {
	client   *http.Client
	endpoint string
	schema   string
	logger   *slog.Logger

	deptExpr jmespath.JMESPath
	funcExpr jmespath.JMESPath
	mgrExpr  jmespath.JMESPath
}

// NewFetcher builds the delegated OAuth2 client and compiles the schema
// extraction expressions.
func NewFetcher(ctx context.Context, cfg Config) (*Fetcher, error) {
	if len(cfg.ServiceAccountJSON) == 0 {
		return nil, fmt.Errorf("service account key is required")
	}
	if cfg.DelegatedUser == "" {
		return nil, fmt.Errorf("delegated user is required for domain-wide delegation")
	}
	schema := cfg.SchemaName
	if schema == "" {
		schema = DefaultSchemaName
	}
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jwtCfg, err := google.JWTConfigFromJSON(cfg.ServiceAccountJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	jwtCfg.Subject = cfg.DelegatedUser

	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := jwtCfg.Client(ctx)
	client.Timeout = timeout

	f := &Fetcher{
		client:   client,
		endpoint: endpoint,
		schema:   schema,
		logger:   logger,
	}
	for _, bind := range []struct {
		dst   *jmespath.JMESPath
		field string
	}{
		{&f.deptExpr, fieldHomeDepartment},
		{&f.funcExpr, fieldUserFunctions},
		{&f.mgrExpr, fieldManager},
	} {
		expr, err := jmespath.Compile(fmt.Sprintf("customSchemas.%q.%s", schema, bind.field))
		if err != nil {
			return nil, fmt.Errorf("compile schema expression for %s: %w", bind.field, err)
		}
		*bind.dst = expr
	}
	return f, nil
}

// Fetch retrieves the user and their group memberships and flattens the
// custom schema fields into a DirectoryRecord.
func (f *Fetcher) Fetch(ctx context.Context, principal string) (ports.DirectoryRecord, error) {
	user, err := f.getUser(ctx, principal)
	if err != nil {
		return ports.DirectoryRecord{}, err
	}
	groups, rawGroups, err := f.listGroups(ctx, principal)
	if err != nil {
		return ports.DirectoryRecord{}, err
	}

	rec := ports.DirectoryRecord{
		Groups:    groups,
		RawUser:   user,
		RawGroups: rawGroups,
	}
	if email, ok := user["primaryEmail"].(string); ok {
		rec.PrimaryEmail = email
	}
	if v, err := f.deptExpr.Search(user); err == nil {
		rec.HomeDepartment = coerceScalar(v)
	}
	if v, err := f.funcExpr.Search(user); err == nil {
		rec.RawFunctions = strings.Join(coerceList(v), "\n")
	}
	if v, err := f.mgrExpr.Search(user); err == nil {
		rec.IsDepartmentManager = coerceBool(v)
	}
	return rec, nil
}

func (f *Fetcher) getUser(ctx context.Context, principal string) (map[string]any, error) {
	u := fmt.Sprintf("%s/users/%s?projection=full&customFieldMask=%s",
		f.endpoint, url.PathEscape(principal), url.QueryEscape(f.schema))

	var user map[string]any
	if err := f.getJSON(ctx, u, &user); err != nil {
		return nil, fmt.Errorf("fetch directory user %s: %w", principal, err)
	}
	return user, nil
}

// listGroups pages through the user's group memberships and returns the
// member group emails plus the raw merged response.
func (f *Fetcher) listGroups(ctx context.Context, principal string) ([]string, map[string]any, error) {
	var (
		emails    []string
		allRaw    []any
		pageToken string
	)
	for {
		u := fmt.Sprintf("%s/groups?userKey=%s", f.endpoint, url.QueryEscape(principal))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page struct {
			Groups        []map[string]any `json:"groups"`
			NextPageToken string           `json:"nextPageToken"`
		}
		if err := f.getJSON(ctx, u, &page); err != nil {
			return nil, nil, fmt.Errorf("fetch directory groups for %s: %w", principal, err)
		}
		for _, g := range page.Groups {
			allRaw = append(allRaw, g)
			if email, ok := g["email"].(string); ok && email != "" {
				emails = append(emails, email)
			}
		}
		if page.NextPageToken == "" {
			return emails, map[string]any{"groups": allRaw}, nil
		}
		pageToken = page.NextPageToken
	}
}

func (f *Fetcher) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// coerceScalar flattens the Admin SDK's schema value shapes (bare scalar,
// {"value": x}, or a list of either) into a single string.
func coerceScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		flat := flattenList(val)
		if len(flat) == 0 {
			return ""
		}
		return flat[0]
	case map[string]any:
		if inner, ok := val["value"]; ok {
			return coerceScalar(inner)
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func coerceList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return flattenList(val)
	case map[string]any:
		if values, ok := val["values"].([]any); ok {
			return flattenList(values)
		}
		if inner, ok := val["value"]; ok {
			if s := coerceScalar(inner); s != "" {
				return []string{s}
			}
			return nil
		}
		return nil
	default:
		if s := coerceScalar(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func flattenList(values []any) []string {
	out := make([]string, 0, len(values))
	for _, entry := range values {
		var s string
		if m, ok := entry.(map[string]any); ok {
			s = coerceScalar(m["value"])
		} else {
			s = coerceScalar(entry)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coerceBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	switch strings.ToLower(coerceScalar(v)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
