package httpx

import (
	"log/slog"
	"net/http"

	"github.com/pleasantco/authzd/internal/domain/authz"
	"github.com/pleasantco/authzd/internal/ports"
	"github.com/pleasantco/authzd/internal/service"
	"github.com/pleasantco/authzd/internal/session"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Authz    *service.AuthzService
	Login    *service.LoginService
	Sessions *session.Manager

	// Mapper and Fetcher back the dev-only directory probe endpoint.
	Mapper  *authz.Mapper
	Fetcher ports.DirectoryFetcher

	CookieDomain string
	// ACLRejectAs404 answers disallowed networks with 404 instead of 403.
	ACLRejectAs404 bool
	// IsDev exposes the mapper probe endpoint.
	IsDev bool

	Logger *slog.Logger
}

// NewRouter builds the HTTP handler with all routes and middleware.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errors := ErrorWriter{ACLRejectAs404: services.ACLRejectAs404}

	authzHandlers := &AuthzHandlers{
		Svc:    services.Authz,
		Errors: errors,
		Logger: logger,
	}
	authHandlers := &AuthHandlers{
		Svc:          services.Login,
		Authz:        services.Authz,
		Sessions:     services.Sessions,
		CookieDomain: services.CookieDomain,
		Errors:       errors,
		Logger:       logger,
	}

	environment := "production"
	if services.IsDev {
		environment = "development"
	}
	health := healthHandler{environment: environment}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	mux.HandleFunc("POST /authz", authzHandlers.Resolve)
	mux.HandleFunc("POST /authz/check", authzHandlers.Check)

	mux.HandleFunc("GET /auth/login", authHandlers.Login)
	mux.HandleFunc("GET /auth/callback", authHandlers.Callback)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/me", authHandlers.Me)

	if services.IsDev && services.Mapper != nil && services.Fetcher != nil {
		probeHandlers := &ProbeHandlers{
			Fetcher: services.Fetcher,
			Mapper:  services.Mapper,
			Errors:  errors,
		}
		mux.HandleFunc("POST /authz/test", probeHandlers.Probe)
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
