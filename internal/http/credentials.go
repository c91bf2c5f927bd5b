package httpx

import (
	"net/http"
	"strings"

	"github.com/pleasantco/authzd/internal/ports"
)

// SessionCookieName is the cookie carrying our signed session token.
const SessionCookieName = "ga_session"

// sessionTokenHeader lets non-browser clients present a session token.
const sessionTokenHeader = "X-Session-Token"

// extractCredentials pulls the caller's credentials off the request:
// a bearer ID token from Authorization, or a session token from the
// session cookie or header.
func extractCredentials(r *http.Request) ports.Credentials {
	var creds ports.Credentials

	if authz := r.Header.Get("Authorization"); authz != "" {
		if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
			creds.IDToken = strings.TrimSpace(token)
		}
	}
	if token := strings.TrimSpace(r.Header.Get(sessionTokenHeader)); token != "" {
		creds.SessionToken = token
	} else if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		creds.SessionToken = cookie.Value
	}
	return creds
}

// tokenEnvelope is the request-body credential carrier accepted by the
// decision endpoints alongside the header and cookie sources.
type tokenEnvelope struct {
	IDToken      string `json:"id_token,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
}

// credentials merges the body token fields with the header and cookie
// sources. A body field wins over its header or cookie counterpart;
// presenting both credential kinds is rejected by the validator.
func (e tokenEnvelope) credentials(r *http.Request) ports.Credentials {
	creds := extractCredentials(r)
	if token := strings.TrimSpace(e.IDToken); token != "" {
		creds.IDToken = token
	}
	if token := strings.TrimSpace(e.SessionToken); token != "" {
		creds.SessionToken = token
	}
	return creds
}
