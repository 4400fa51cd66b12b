// Package server assembles the HTTP service from configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/climajusto/iacolhe/internal/analyzer"
	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/config"
	"github.com/climajusto/iacolhe/internal/db"
	"github.com/climajusto/iacolhe/internal/metrics"
	"github.com/climajusto/iacolhe/internal/prompts"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/router"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/storage"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 30 * time.Second

// Build wires every component and returns the root handler. The caller owns database.
func Build(ctx context.Context, cfg *config.Config, database *sqlx.DB, logger *utils.Logger) (http.Handler, error) {
	chatScript, err := prompts.Chat(cfg.ChatScriptVersion)
	if err != nil {
		return nil, err
	}
	extractionScript, err := prompts.Extraction(cfg.ExtractionScriptVersion)
	if err != nil {
		return nil, err
	}

	var archive storage.Storage
	if cfg.ArchiveEnabled() {
		if archive, err = storage.NewS3Storage(ctx, storage.Options{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3BucketName,
			UseSSL:          cfg.S3UseSSL,
		}); err != nil {
			return nil, err
		}
		logger.Info("Document archive enabled", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketName)
	}

	if cfg.AIGatewayAPIKey == "" {
		logger.Warn("AI_GATEWAY_API_KEY is not set; relay calls will fail")
	}
	if cfg.DevBypassAuth {
		logger.Warn("Development auth bypass is enabled")
	}

	benefits := repository.NewBenefitRepository(database)
	transcripts := repository.NewTranscriptRepository(database)
	documents := repository.NewDocumentRepository(database)
	roles := repository.NewRoleRepository(database)

	gateway := analyzer.NewGateway(cfg.AIGatewayAPIKey, cfg.AIGatewayURL, cfg.AIModel, logger)
	relay := services.NewRelayService(gateway, chatScript, extractionScript, logger)
	protocols := services.NewProtocolService(benefits, logger)

	intake := services.NewIntakeService(relay, benefits, documents, archive, services.IntakeOptions{
		MaxFileSize: cfg.MaxFileSize,
		Concurrency: cfg.IntakeConcurrency,
		ProgressTTL: cfg.ProgressTTL,
	}, logger)

	return router.NewRouter(router.Deps{
		Relay: relay,
		Conversation: services.NewConversationService(relay, benefits, transcripts, protocols, services.ConversationOptions{
			SessionTTL: cfg.SessionTTL,
		}, logger),
		Intake:         intake,
		Review:         services.NewReviewService(roles, benefits, transcripts, documents, archive, logger),
		Protocols:      protocols,
		Analytics:      services.NewAnalyticsService(benefits, documents),
		Verifier:       auth.NewVerifier(cfg.JWTSecret, cfg.DevBypassAuth),
		DB:             database,
		MaxFileSize:    cfg.MaxFileSize,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger), nil
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	metrics.Register(prometheus.DefaultRegisterer)

	handler, err := Build(ctx, cfg, database, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "model", cfg.AIModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
