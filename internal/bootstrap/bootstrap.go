// Package bootstrap provides dependency initialization for the make-video API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/make-video-api/internal/config"
	"github.com/maauso/make-video-api/internal/fetch"
	"github.com/maauso/make-video-api/internal/media"
	"github.com/maauso/make-video-api/internal/storage"
	"github.com/maauso/make-video-api/internal/video"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	VideoService *video.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewHTTPFetcher(store, fetch.WithTimeout(cfg.DownloadTimeout))
	encoder := media.NewFFmpegEncoder(cfg.FFmpegPath, logger)

	svc := video.NewService(
		fetcher,
		encoder,
		store,
		logger,
		video.WithArchive(cfg.S3Enabled()),
	)

	return &Dependencies{
		VideoService: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 archive configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("temp_dir", s3Store.TempDir()),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil
}
