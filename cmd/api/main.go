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

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tailorbook/internal/admin"
	"github.com/carterperez-dev/tailorbook/internal/appointment"
	"github.com/carterperez-dev/tailorbook/internal/auth"
	"github.com/carterperez-dev/tailorbook/internal/config"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/health"
	"github.com/carterperez-dev/tailorbook/internal/measurement"
	"github.com/carterperez-dev/tailorbook/internal/message"
	"github.com/carterperez-dev/tailorbook/internal/metrics"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/order"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
	"github.com/carterperez-dev/tailorbook/internal/server"
	"github.com/carterperez-dev/tailorbook/internal/user"
)

const (
	drainDelay         = 5 * time.Second
	tokenPurgeInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else if telemetry.Enabled() {
		logger.Info("exporting traces", "endpoint", cfg.Otel.Endpoint)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		n, migErr := core.Migrate(ctx, db.DB)
		if migErr != nil {
			return migErr
		}
		logger.Info("migrations applied", "count", n)
	}

	rdb, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	hub := realtime.NewHub(
		realtime.NewRedisBroker(rdb.Client, cfg.Realtime.Channel),
		cfg.Realtime.SubscriberBuffer,
		logger.With("component", "realtime"),
	)
	go func() {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("realtime hub stopped", "error", err)
		}
	}()

	userSvc := user.NewService(user.NewRepository(db.DB), hub)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(
		auth.NewIdentityRepository(db.DB),
		auth.NewTokenRepository(db.DB),
		userSvc,
		db,
		jwtManager,
		rdb,
		hub,
	)
	if cfg.OAuth.GoogleEnabled() {
		authSvc.EnableOAuth(auth.NewGoogleProvider(cfg.OAuth), cfg.OAuth)
		logger.Info("google sign-in enabled", "callback", cfg.OAuth.CallbackURL)
	}
	authHandler := auth.NewHandler(authSvc)
	go purgeExpiredTokens(ctx, authSvc, logger)

	orderSvc := order.NewService(order.NewRepository(db.DB), userSvc, hub)
	appointmentSvc := appointment.NewService(appointment.NewRepository(db.DB), hub)
	messageSvc := message.NewService(message.NewRepository(db.DB), hub)
	measurementSvc := measurement.NewService(measurement.NewRepository(db.DB), hub)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: rdb},
		health.Dependency{Name: "realtime", Checker: hub},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:      db.Stats,
		RedisStats:   rdb.PoolStats,
		DBPing:       db.Ping,
		RedisPing:    rdb.Ping,
		Orders:       orderSvc,
		Appointments: appointmentSvc,
		Messages:     messageSvc,
		Realtime:     hub,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})
	srv.RegisterOnShutdown(hub.Close)

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware)
	router.Use(
		middleware.NewRateLimiter(rdb.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
			Logger:   logger,
		}).Handler,
	)
	router.Use(
		middleware.NewRateLimiter(rdb.Client, middleware.RateLimitConfig{
			Limit:   middleware.PerWindow(cfg.RateLimit.Sensitive, 0, cfg.RateLimit.Window),
			KeyFunc: middleware.KeyByIPAndEndpoint,
			Only: middleware.SensitiveEndpoints(
				"/v1/auth/token",
				"/v1/auth/signup",
				"/v1/contact-messages",
			),
			FailOpen: true,
			Logger:   logger,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	authenticator := middleware.Authenticator(authSvc)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterCallback(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(cfg.APIKey.Anon))

			authHandler.RegisterRoutes(r, authenticator)
			userHandler.RegisterRoutes(r, authenticator)
			order.NewHandler(orderSvc).RegisterRoutes(r, authenticator)
			appointment.NewHandler(appointmentSvc).RegisterRoutes(r, authenticator)
			message.NewHandler(messageSvc).RegisterRoutes(r, authenticator)
			measurement.NewHandler(measurementSvc).RegisterRoutes(r, authenticator)
			realtime.NewHandler(hub, cfg.Realtime.Heartbeat).RegisterRoutes(r, authenticator)
			adminHandler.RegisterRoutes(r, authenticator, middleware.RequireStaff)
		})
	})

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

	hub.Close()

	if telemetry.Enabled() {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func purgeExpiredTokens(ctx context.Context, svc *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warn("purge expired refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", "count", n)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
