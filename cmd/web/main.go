// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/config"
	"github.com/carterperez-dev/tailorbook/internal/health"
	"github.com/carterperez-dev/tailorbook/internal/metrics"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/server"
	"github.com/carterperez-dev/tailorbook/internal/web"
)

const (
	drainDelay = 2 * time.Second

	contentPolicy = "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"form-action 'self' https://accounts.google.com; " +
		"frame-ancestors 'none'"
)

func main() {
	configPath := flag.String("config", "web.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.LoadWeb(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting web app",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	client := backend.New(cfg.Backend)
	if !client.Configured() {
		logger.Warn(backend.ErrNotConfigured.Error())
	}

	handler, err := web.NewHandler(web.Config{
		Client:    client,
		Session:   cfg.Session,
		AuthLimit: cfg.AuthLimit,
		Business:  cfg.Business,
		Logger:    logger.With("component", "web"),
	})
	if err != nil {
		return err
	}

	registry := handler.Registry()
	go registry.Run(ctx)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "backend", Checker: client},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.ContentSecurityPolicy(contentPolicy))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())
	handler.RegisterRoutes(router)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("web app stopped", "open_bundles", registry.Len())
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
