package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/pleasantco/authzd/config"
	httpx "github.com/pleasantco/authzd/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer builds the router, binds the listener, and starts serving
// in the background. Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	handler := httpx.NewRouter(httpx.RouterServices{
		Authz:          cfg.Services.Authz,
		Login:          cfg.Services.Login,
		Sessions:       cfg.Services.Sessions,
		Mapper:         cfg.Services.Mapper,
		Fetcher:        cfg.Services.Fetcher,
		CookieDomain:   appCfg.HTTP.CookieDomain,
		ACLRejectAs404: appCfg.Authz.ACLReject404,
		IsDev:          appCfg.IsDev,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              appCfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, err
	}
	if appCfg.HTTP.MaxConns > 0 {
		logger.Info("limiting concurrent connections", "max_conns", appCfg.HTTP.MaxConns)
		listener = netutil.LimitListener(listener, appCfg.HTTP.MaxConns)
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", serveErr)
		}
	}()

	return server, nil
}

// ShutdownHTTPServer gracefully shuts down the HTTP server, waiting up to
// the configured shutdown timeout for in-flight requests.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger != nil {
		logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("HTTP server stopped")
	}
	return nil
}
