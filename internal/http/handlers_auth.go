package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/pleasantco/authzd/internal/errors"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/service"
	"github.com/pleasantco/authzd/internal/session"
)

// AuthHandlers provides HTTP handlers for the browser login flow.
type AuthHandlers struct {
	Svc          *service.LoginService
	Authz        *service.AuthzService
	Sessions     *session.Manager
	CookieDomain string
	Errors       ErrorWriter
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles the OAuth callback endpoint.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.Errors.Write(w, apperrors.MalformedRequest("code and state are required"))
		return
	}

	// The state must round-trip through the cookie we set at login.
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.Errors.Write(w, apperrors.Unauthenticated("state mismatch").WithReason("invalid_state"))
		return
	}
	nonce := ""
	if nonceCookie, cookieErr := r.Cookie("oauth_nonce"); cookieErr == nil {
		nonce = nonceCookie.Value
	}

	result, err := h.Svc.CompleteLogin(r.Context(), ports.ExchangeInput{
		Code:  code,
		State: state,
		Nonce: nonce,
	})
	if err != nil {
		h.logger().Warn("login callback failed", "error", err)
		h.Errors.Write(w, err)
		return
	}

	h.setSessionCookie(w, r, result.Token, result.Session.ExpiresAt)
	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")

	http.Redirect(w, r, h.getPostLoginRedirect(w, r), http.StatusFound)
}

// Logout handles POST /auth/logout: it clears the session cookie and drops
// the principal's cached authorization.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if sess, verifyErr := h.Sessions.Verify(cookie.Value); verifyErr == nil {
			if logoutErr := h.Svc.Logout(r.Context(), sess); logoutErr != nil {
				h.logger().Warn("logout cache invalidation failed", "error", logoutErr)
			}
		}
	}
	h.clearCookie(w, r, SessionCookieName)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// meResponse is the GET /auth/me body.
type meResponse struct {
	Email         string          `json:"email"`
	Subject       string          `json:"sub,omitempty"`
	SessionID     string          `json:"session_id"`
	IssuedAt      time.Time       `json:"issued_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	EffectiveAuth resolveResponse `json:"effective_auth"`
}

// Me handles GET /auth/me: it reports the current session and its effective
// authorization, and silently reissues the token when it is close to expiry.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		h.Errors.Write(w, apperrors.Unauthenticated("no session").WithReason("missing_token"))
		return
	}

	sess, err := h.Sessions.Verify(cookie.Value)
	if err != nil {
		h.clearCookie(w, r, SessionCookieName)
		h.Errors.Write(w, err)
		return
	}

	res, err := h.Authz.Resolve(r.Context(), service.ResolveInput{
		ClientIP:    ClientIP(r),
		Credentials: ports.Credentials{SessionToken: cookie.Value},
	})
	if err != nil {
		h.Errors.Write(w, err)
		return
	}

	if refreshed, refreshErr := h.Svc.RefreshSession(sess); refreshErr == nil && refreshed != nil {
		h.setSessionCookie(w, r, refreshed.Token, refreshed.Session.ExpiresAt)
		sess = refreshed.Session
	}

	WriteJSON(w, http.StatusOK, meResponse{
		Email:         sess.Email,
		Subject:       sess.Subject,
		SessionID:     sess.ID,
		IssuedAt:      sess.IssuedAt,
		ExpiresAt:     sess.ExpiresAt,
		EffectiveAuth: newResolveResponse(res.EffectiveAuth, res.Source),
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// clearCookie clears a cookie by setting it to expire immediately, mirroring
// the attributes used when setting it.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores state, nonce, and the post-login redirect so the
// callback can validate the round trip.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := isSecureRequest(r)
	for name, value := range map[string]string{
		"oauth_state":         p.State,
		"oauth_nonce":         p.Nonce,
		"post_login_redirect": p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600, // 10 minutes
		})
	}
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

// getPostLoginRedirect returns the validated post-login redirect and clears
// its cookie.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if redirectCookie, err := r.Cookie("post_login_redirect"); err == nil {
		redirectURI = safeRedirectPath(redirectCookie.Value)
		h.clearCookie(w, r, "post_login_redirect")
	}
	return redirectURI
}

// safeRedirectPath allows only same-origin relative paths starting with "/".
// Anything else collapses to "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return candidate
}
