package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pleasantco/authzd/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.ValidateConfig(&cfg); err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting authzd",
		"addr", cfg.HTTP.Addr,
		"dev_mode", cfg.IsDev,
		"redis", cfg.Redis.Enabled())

	deps := &bootstrap.ServiceDeps{Config: &cfg, Logger: logger}
	if cfg.Redis.Enabled() {
		client, redisErr := bootstrap.ConnectRedis(cfg.Redis, logger)
		if redisErr != nil {
			return redisErr
		}
		deps.RedisClient = client
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.BuildServices(ctx, deps)
	if err != nil {
		return err
	}

	server, err := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// Wait for shutdown signal
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	// The signal context is already done; shut down on a fresh one.
	return bootstrap.ShutdownHTTPServer(context.Background(), server, cfg.HTTP.ShutdownTimeout, logger)
}
