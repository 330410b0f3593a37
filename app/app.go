package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buddy-api/common"
	"buddy-api/config"
	"buddy-api/db"
	"buddy-api/handler"
	"buddy-api/logger"
	"buddy-api/metrics"
	"buddy-api/repository"
	"buddy-api/router"
	"buddy-api/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// App holds the wired layers. Tests build one over their own database.
type App struct {
	DB       *sql.DB
	Router   http.Handler
	Auth     *service.AuthService
	Registry *prometheus.Registry
}

// New wires repositories, services and handlers over database.
func New(cfg *config.Config, database *sql.DB) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock := common.NewSystemClock(loc)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Layers for users and refresh tokens
	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewTokenRepository(database)

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	codec, err := service.NewJWTCodec(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.AccessTokenTTL(), clock)
	if err != nil {
		return nil, err
	}
	credentials := service.NewCredentialStore(userRepo, hasher, clock)
	ledger := service.NewRefreshTokenLedger(tokenRepo, cfg.Auth.RefreshTokenCapacity, clock, rand.Reader, m)
	authService := service.NewAuthService(credentials, hasher, codec, ledger, m)

	authHandler := handler.NewAuthHandler(authService)

	return &App{
		DB:       database,
		Router:   router.NewRouter(authHandler, authService, registry),
		Auth:     authService,
		Registry: registry,
	}, nil
}

// Run connects to the database, serves HTTP and shuts down gracefully on
// SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	database, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	defer database.Close()

	a, err := New(cfg, database)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Server starting on port :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exited properly")
	return nil
}
