package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/app"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/andresuchdata/pantrywise/backend-go/internal/drive"
	"github.com/andresuchdata/pantrywise/backend-go/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.For("ingest-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Google Drive service
	driveService, err := drive.NewServiceFromFile(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	// Initialize database and services
	a, err := app.New(ctx, cfg, app.Options{NoStorage: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	ingestService := drive.NewIngestService(driveService, a.Ingest)

	// Register routes
	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Poll the configured folder in the background
	if cfg.Drive.FolderID != "" && cfg.Drive.Tenant != "" {
		syncer := drive.NewSyncer(ingestService)
		opts := drive.SyncOptions{
			FolderID:    cfg.Drive.FolderID,
			Tenant:      cfg.Drive.Tenant,
			DownloadDir: cfg.Drive.DownloadDir,
		}
		go func() {
			interval := time.Duration(cfg.Drive.PollSeconds) * time.Second
			if err := syncer.Watch(ctx, opts, interval); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Drive watcher stopped")
			}
		}()
	}

	addr := fmt.Sprintf(":%s", cfg.Server.IngestPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
}
