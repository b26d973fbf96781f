package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/routerpay/router_service/internal/api/routes"
	"github.com/routerpay/router_service/internal/infrastructure/config"
	"github.com/routerpay/router_service/internal/infrastructure/database"
	"github.com/routerpay/router_service/internal/infrastructure/di"
	"github.com/routerpay/router_service/internal/workers/pending_monitor"
	"github.com/routerpay/router_service/pkg/graceful"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	if cfg.Tracing.Enabled {
		tracingShutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
			Enabled:      true,
			CollectorURL: cfg.Tracing.CollectorURL,
			Environment:  cfg.Environment,
			SampleRate:   cfg.Tracing.SampleRate,
			Insecure:     cfg.Tracing.Insecure,
		}, log.Zap())
		if err != nil {
			log.Fatal("Failed to initialize tracing", "error", err)
		}
		defer tracingShutdown(context.Background())
		log.Info("Tracing initialized", "collector_url", cfg.Tracing.CollectorURL)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to build container", "error", err)
	}
	defer container.Close()

	router := routes.Setup(cfg, log, routes.Handlers{
		Core:      container.CoreHandler,
		Payments:  container.PaymentHandler,
		Callbacks: container.CallbackHandler,
		Admin:     container.AdminHandler,
	}, container.JWTManager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	shutdown := graceful.NewShutdownManager(server, log)

	if cfg.Monitor.Enabled {
		monitor := pending_monitor.NewWorker(container.LedgerService, &pending_monitor.Config{
			Schedule:   cfg.Monitor.Schedule,
			StuckAfter: time.Duration(cfg.Monitor.StuckAfterMinutes) * time.Minute,
			BatchSize:  pending_monitor.DefaultConfig().BatchSize,
		}, log)
		if err := monitor.Start(); err != nil {
			log.Fatal("Failed to start pending request monitor", "error", err)
		}
		shutdown.Register(monitor)
	}

	go func() {
		log.Info("Payment router listening",
			"addr", server.Addr,
			"environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
}
