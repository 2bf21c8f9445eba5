// Package main initializes and starts the report service HTTP server,
// setting up configuration, logging, the database, repositories, services,
// upload storage and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/ReportDesk/internal/auth"
	"github.com/atinyakov/ReportDesk/internal/config"
	"github.com/atinyakov/ReportDesk/internal/db"
	"github.com/atinyakov/ReportDesk/internal/logger"
	"github.com/atinyakov/ReportDesk/internal/repository"
	"github.com/atinyakov/ReportDesk/internal/server/handler/http"
	"github.com/atinyakov/ReportDesk/internal/service"
	"github.com/atinyakov/ReportDesk/internal/upload"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and apply migrations.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer func() { _ = postgresDB.Close() }()

	// Initialize repositories.
	adminRepo := repository.NewPostgresAdminRepository(postgresDB)
	reportRepo := repository.NewPostgresReportRepository(postgresDB)

	// Initialize business-logic services.
	if options.JWTSecret == config.DefaultJWTSecret {
		zapLogger.Warn("using the default JWT secret, set JWT_SECRET in production")
	}
	tokens := auth.NewTokens(options.JWTSecret, options.TokenTTL)
	authService := service.NewAuthService(adminRepo, tokens)
	reportService := service.NewReportService(reportRepo)

	// Seed the default administrator.
	created, err := authService.EnsureAdmin(ctx, options.SeedAdminUsername, options.SeedAdminPassword)
	if err != nil {
		zapLogger.Fatal("cannot seed admin", zap.Error(err))
	}
	if created {
		zapLogger.Info("created default admin", zap.String("username", options.SeedAdminUsername))
	}

	// Initialize upload storage.
	store, err := upload.NewStorage(ctx, options.StorageBackend, options.UploadDir, upload.S3Config{
		Bucket:    options.S3Bucket,
		Region:    options.S3Region,
		Endpoint:  options.S3Endpoint,
		AccessKey: options.S3AccessKey,
		SecretKey: options.S3SecretKey,
	})
	if err != nil {
		zapLogger.Fatal("cannot init upload storage", zap.Error(err))
	}
	uploader := upload.NewUploader(store, options.MaxFileSize)

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.HealthHandler{Environment: options.Environment},
		&http.AuthHandler{AuthService: authService, Log: zapLogger},
		&http.ReportHandler{Reports: reportService, Log: zapLogger},
		&http.UploadHandler{Uploader: uploader, Files: store, Log: zapLogger},
		http.RouterOptions{
			Verifier:     tokens,
			ExposeErrors: !options.IsProduction(),
			Logger:       zapLogger,
		},
	)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting HTTP server",
			zap.String("addr", options.Port),
			zap.String("environment", options.Environment),
			zap.String("storage", options.StorageBackend),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
