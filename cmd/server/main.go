package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/blog/internal/api"
	"github.com/dom/blog/internal/config"
	"github.com/dom/blog/internal/logging"
	"github.com/dom/blog/internal/repository/postgres"
	"github.com/dom/blog/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.Init(cfg.Environment, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	// Initialize database
	dbLogLevel, err := postgres.ParseLogLevel(cfg.DBLogLevel)
	if err != nil {
		logging.Fatal("invalid database log level", logging.Err(err))
	}
	db, err := postgres.NewConnection(cfg.DatabaseURL, dbLogLevel)
	if err != nil {
		logging.Fatal("failed to connect to database", logging.Err(err))
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			logging.Error("failed to close database", logging.Err(err))
		}
	}()

	// Initialize repositories and services
	repos := postgres.NewRepositories(db)
	services := service.NewServices(repos, cfg)

	// Purge expired sessions in the background
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	reaper := service.NewSessionReaper(services.Sessions, cfg.SessionReapInterval, logger)
	go reaper.Run(reaperCtx)

	router := api.NewRouter(services, cfg, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info("server starting",
			logging.String("port", cfg.Port),
			logging.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("failed to start server", logging.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down server")
	stopReaper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("server forced to shutdown", logging.Err(err))
		return
	}

	logging.Info("server stopped")
}
