package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zylorb/internal/config"
	"zylorb/internal/database"
	"zylorb/internal/event"
	"zylorb/internal/handler"
	"zylorb/internal/metrics"
	"zylorb/internal/middleware"
	"zylorb/internal/password"
	"zylorb/internal/ratelimit"
	"zylorb/internal/repository"
	"zylorb/internal/router"
	"zylorb/internal/service"
	"zylorb/internal/token"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X zylorb/internal/app.Version=...".
var Version = "dev"

type accountBackend interface {
	service.AccountStore
	Ping(ctx context.Context) error
	Backend() string
}

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	var cleanups []func()
	fail := func(err error) (*App, error) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		return nil, err
	}

	accounts, closeStore, err := openAccountStore(cfg)
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, closeStore)

	hasher, err := password.New(cfg.PasswordHasher)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize password hasher: %w", err))
	}

	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize token codec: %w", err))
	}

	m := metrics.New()
	bus := event.NewBus()
	m.TrackGauge("event_subscribers", "Subscribers attached to the account event bus.", func() float64 {
		return float64(bus.SubscriberCount())
	})

	authService, err := service.NewAuthService(accounts, hasher, codec, bus)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize auth service: %w", err))
	}
	authService.SetMetrics(m)

	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax)
	m.TrackGauge("rate_limit_windows", "Client windows currently tracked by the fixed-window limiter.", func() float64 {
		return float64(limiter.Len())
	})
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go limiter.StartSweeper(sweepCtx, cfg.RateLimitSweepInterval)
	cleanups = append(cleanups, sweepCancel)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, middleware.RateLimitOptions{
		TrustProxy: cfg.TrustProxyHeaders,
		AuthRPM:    cfg.AuthRateLimitRPM,
		AuthPaths:  router.CredentialPaths,
		Metrics:    m,
	})

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), rateLimitMiddleware, m, router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Health: handler.NewHealthHandler(accounts, Version),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("gateway ready",
		"store", accounts.Backend(),
		"hasher", cfg.PasswordHasher,
		"rate_limit_window", cfg.RateLimitWindow,
		"rate_limit_max", cfg.RateLimitMax,
	)

	return &App{server: server, cleanupFuncs: cleanups}, nil
}

// openAccountStore builds exactly the backend that was configured. A
// postgres failure is fatal at startup.
func openAccountStore(cfg *config.Config) (accountBackend, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		slog.Info("connecting to PostgreSQL")
		db, err := database.Open(ctx, database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		slog.Info("database ready")
		return repository.NewAccountRepository(db.Pool), db.Close, nil
	case config.BackendMemory:
		slog.Warn("using in-memory account store; accounts are lost on restart")
		return repository.NewMemoryAccountRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.Close()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// Close releases the store and stops background work.
func (a *App) Close() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
}
