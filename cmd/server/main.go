package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/xavierjflanagan/Guardian-sub003/internal/config"
	"github.com/xavierjflanagan/Guardian-sub003/internal/handler"
	"github.com/xavierjflanagan/Guardian-sub003/internal/logger"
	"github.com/xavierjflanagan/Guardian-sub003/internal/metrics"
	"github.com/xavierjflanagan/Guardian-sub003/internal/ocr"
	"github.com/xavierjflanagan/Guardian-sub003/internal/repository"
	"github.com/xavierjflanagan/Guardian-sub003/internal/router"
	"github.com/xavierjflanagan/Guardian-sub003/internal/service"
	s3storage "github.com/xavierjflanagan/Guardian-sub003/internal/storage/s3"
	"github.com/xavierjflanagan/Guardian-sub003/internal/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Log)

	policy, err := validator.ParsePolicy(cfg.Manifest.Policy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, encounterRepo, err := repository.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open encounter store: %w", err)
	}
	defer db.Close()

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(ctx, &cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	geometry := ocr.NewStorageGeometrySource(s3Client, cfg.S3.Bucket, cfg.Artefacts.OCRKey)

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize services
	manifestSvc := service.NewManifestService(encounterRepo, geometry, m, service.ManifestConfig{
		Policy:           policy,
		IdentifiedInPass: cfg.Manifest.IdentifiedInPass,
		MaxPage:          cfg.Manifest.MaxPage,
	})

	// Initialize handlers
	encounterH := handler.NewEncounterHandler(manifestSvc)
	healthH := handler.NewHealthHandler(db)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.Setup(encounterH, healthH, reg, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Str("policy", string(policy)).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
