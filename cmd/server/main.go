package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linker/internal/app"
	"linker/internal/config"
	"linker/internal/db"
	"linker/internal/jobs"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/routes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Fatal("Server stopped with error", "error", err)
	}
}

func run(cfg *config.Config) error {
	logging.Info("Linker starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.Postgres.DSN()
	sqlDB, err := db.InitPostgres(dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	logging.Info("Connected to Postgres (sqlx)")

	gdb, err := db.InitPostgresORM(dsn)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	application, err := app.Build(ctx, cfg, gdb, sqlDB, metricsReg)
	if err != nil {
		return err
	}
	defer application.Close()

	upSince := time.Now()
	router := routes.RegisterRoutes(application.APIDependencies(upSince), metricsReg)

	// Metrics live outside the chi router so scrapes are not counted as API traffic.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := jobs.InitializeJobs(ctx, cfg.Jobs, application.IngestJob, application.NotificationJob, application.StatsJob)

	serveErr := make(chan error, 1)
	go func() {
		logging.Info("Server starting", "port", cfg.Port, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		scheduler.Wait()
		return err
	case <-ctx.Done():
	}

	logging.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown failed", "error", err)
	}
	scheduler.Wait()
	return nil
}
