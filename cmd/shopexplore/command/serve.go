package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vbonduro/shopexplore/internal/auth"
	"github.com/vbonduro/shopexplore/internal/config"
	"github.com/vbonduro/shopexplore/internal/db"
	"github.com/vbonduro/shopexplore/internal/events"
	"github.com/vbonduro/shopexplore/internal/graceful"
	"github.com/vbonduro/shopexplore/internal/logging"
	"github.com/vbonduro/shopexplore/internal/posterstore"
	"github.com/vbonduro/shopexplore/internal/posterstore/local"
	"github.com/vbonduro/shopexplore/internal/posterstore/s3"
	"github.com/vbonduro/shopexplore/internal/service"
	"github.com/vbonduro/shopexplore/internal/store"
	"github.com/vbonduro/shopexplore/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	ctx, cancel := graceful.Context(cmd.Context(), logger)
	defer cancel()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	posters, err := newPosterStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close event publisher", "error", err)
		}
	}()

	shopService := service.NewShopService(store.NewShopStore(database), posters, publisher, cfg.NearbyRadiusKm, logger)
	authService := service.NewAuthService(store.NewUserStore(database), issuer, logger)
	server := web.NewServer(shopService, authService, issuer, cfg.FrontendURL, logger)

	return server.Run(ctx, cfg.ListenAddr, cfg.ShutdownTimeout)
}

func newPosterStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (posterstore.PosterStore, error) {
	switch cfg.PosterBackend {
	case "s3":
		logger.Info("using S3 poster backend", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return s3.NewPosterStore(ctx, s3.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	case "local", "":
		logger.Info("using local poster backend", "path", cfg.PosterPath)
		return local.NewPosterStore(cfg.PosterPath)
	default:
		return nil, fmt.Errorf("unknown POSTER_BACKEND %q (want local or s3)", cfg.PosterBackend)
	}
}

func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.KafkaBroker == "" {
		logger.Info("no KAFKA_BROKER set, shop events are discarded")
		return events.Nop{}
	}
	logger.Info("publishing shop events to kafka", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	return events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
}
