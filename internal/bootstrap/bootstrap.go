// Package bootstrap provides dependency initialization for the PurpleStream API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/purplestream-api/internal/auth"
	"github.com/maauso/purplestream-api/internal/catalog"
	"github.com/maauso/purplestream-api/internal/config"
	"github.com/maauso/purplestream-api/internal/identity"
	"github.com/maauso/purplestream-api/internal/storage"
	"github.com/maauso/purplestream-api/internal/video"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	VideoService *video.Service
	Directory    identity.Directory
	Tokens       *auth.TokenService
	Catalog      *catalog.FileStore
	Gateway      storage.Gateway
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	directory, err := initDirectory(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize catalog
	store, err := catalog.OpenFileStore(cfg.CatalogPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	// Initialize upload staging
	temp, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("upload staging configured",
		slog.String("temp_dir", temp.TempDir()),
	)

	gateway, err := initGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, auth.WithTTL(cfg.TokenTTL))

	svc := video.NewService(store, gateway, temp, logger)

	return &Dependencies{
		VideoService: svc,
		Directory:    directory,
		Tokens:       tokens,
		Catalog:      store,
		Gateway:      gateway,
	}, nil
}

// initDirectory loads users from USERS_FILE, or falls back to the demo users.
func initDirectory(cfg *config.Config, logger *slog.Logger) (identity.Directory, error) {
	if cfg.UsersFile == "" {
		dir := identity.NewStaticDirectory(identity.DefaultUsers())
		logger.Warn("USERS_FILE not set, using built-in demo users",
			slog.Int("users", dir.Len()),
		)
		return dir, nil
	}

	dir, err := identity.LoadFile(cfg.UsersFile)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	logger.Info("users loaded",
		slog.String("path", cfg.UsersFile),
		slog.Int("users", dir.Len()),
	)
	return dir, nil
}

// initGateway creates the appropriate storage gateway based on configuration.
func initGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Gateway, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		gw, err := storage.NewS3Gateway(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 gateway: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return gw, nil
	}

	gw, err := storage.NewDriveGateway(ctx, storage.DriveConfig{
		FolderID:        cfg.DriveFolderID,
		CredentialsJSON: []byte(cfg.ServiceAccountJSON),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create Drive gateway: %w", err)
	}
	logger.Info("Google Drive storage configured",
		slog.String("folder_id", cfg.DriveFolderID),
		slog.Bool("degraded", gw.Degraded()),
	)
	return gw, nil
}
