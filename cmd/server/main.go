package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"ratelens/internal/api"
	"ratelens/internal/app"
	"ratelens/internal/config"
	internaldb "ratelens/internal/db"
	"ratelens/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := internaldb.OpenStores(cfg.CatalogDBPath, cfg.BenchmarkDBPath, 8)
	if err != nil {
		return err
	}
	defer stores.Close() //nolint:errcheck

	var s3Client storage.ObjectGetter
	if cfg.S3Bucket != nil {
		client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			return err
		}
		s3Client = client
		logger.Info("remote partition fetch enabled", "bucket", *cfg.S3Bucket)
	} else {
		logger.Info("no bucket configured, serving local and sample sources only")
	}

	application := app.New(app.Deps{
		Cfg:         cfg,
		CatalogDB:   stores.CatalogRead,
		BenchmarkDB: stores.BenchmarkRead,
		S3:          s3Client,
		Logger:      logger,
	})
	defer application.Pool.CleanupAll()

	maintenance, err := app.NewMaintenance(application, logger)
	if err != nil {
		return err
	}
	maintenance.Start()
	defer maintenance.Stop()

	handler := api.NewHandler(
		application.Services.Navigator,
		application.Services.Dataset,
		application.Services.Insights,
		logger,
	)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
