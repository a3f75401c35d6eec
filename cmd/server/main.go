package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hollandwest/skadi/internal"
	"github.com/hollandwest/skadi/internal/handler/api"
	"github.com/hollandwest/skadi/internal/media"
	"github.com/hollandwest/skadi/internal/middleware"
	"github.com/hollandwest/skadi/internal/postgres"
	"github.com/hollandwest/skadi/internal/router"
	"github.com/hollandwest/skadi/internal/service"
	"github.com/hollandwest/skadi/internal/storage"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	// Initialize object storage backend
	objectStore, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage backend initialized", "provider", cfg.Storage.Provider)

	// Initialize the image ingestion pipeline
	resolver := media.NewSourceResolver(
		&http.Client{Timeout: cfg.Upload.FetchTimeout},
		cfg.Upload.SourceBaseDir,
	)
	pipeline := media.NewPipeline(resolver, objectStore, media.PipelineConfig{
		Production:  cfg.Storage.IsProduction(),
		Namespace:   cfg.Upload.Namespace,
		ScratchRoot: cfg.Upload.ScratchDir,
	}, logger)

	imageService := service.NewSkuImageService(store, pipeline, logger, cfg.Upload.SkuConcurrency)
	imageHandler := api.NewSkuImageHandler(imageService, logger)

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics("skadi")

	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		middleware.Recovery,
		metrics.Middleware,
		middleware.RequestLogging,
	)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Image ingestion API
	r.Post("/api/skus/images/batch", imageHandler.UploadBatch)
	r.Get("/api/skus/{id}/images", imageHandler.ListImages)

	// Serve generated variants directly in local mode
	if !cfg.Storage.IsProduction() {
		r.Static(cfg.Storage.LocalURL, cfg.Storage.LocalPath)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
