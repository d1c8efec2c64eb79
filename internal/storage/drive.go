package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveURLTemplate = "https://drive.google.com/uc?export=%s&id=%s"

// ErrNoFileID is returned when Drive accepts an upload but reports no file ID.
var ErrNoFileID = errors.New("storage: Drive response has no file ID")

// DriveConfig holds the configuration for the Google Drive gateway.
type DriveConfig struct {
	// FolderID is the Drive folder new files are created in. Empty means the
	// service account's root.
	FolderID string
	// CredentialsJSON is the service account key bundle.
	CredentialsJSON []byte
	// Endpoint optionally overrides the Drive API base URL.
	Endpoint string
}

// Compile-time check that DriveGateway implements Gateway.
var _ Gateway = (*DriveGateway)(nil)

// DriveGateway stores videos as files in Google Drive.
// Object identifiers are Drive file IDs.
type DriveGateway struct {
	svc      *drive.Service
	folderID string
	degraded bool
}

// NewDriveGateway creates a Drive client authenticated with the service
// account in cfg. A missing or unusable credential bundle is logged and the
// client is built without credentials: the process keeps running and every
// Drive call fails with an authorization error instead.
func NewDriveGateway(ctx context.Context, cfg DriveConfig, logger *slog.Logger) (*DriveGateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var base []option.ClientOption
	if cfg.Endpoint != "" {
		base = append(base, option.WithEndpoint(cfg.Endpoint))
	}

	if len(cfg.CredentialsJSON) > 0 && json.Valid(cfg.CredentialsJSON) {
		opts := append(slices.Clone(base),
			option.WithCredentialsJSON(cfg.CredentialsJSON),
			option.WithScopes(drive.DriveScope),
		)
		svc, err := drive.NewService(ctx, opts...)
		if err == nil {
			return &DriveGateway{svc: svc, folderID: cfg.FolderID}, nil
		}
		logger.Error("invalid Drive service account credentials, continuing without credentials",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Error("SERVICE_ACCOUNT_JSON is missing or not valid JSON, continuing without credentials")
	}

	svc, err := drive.NewService(ctx, append(base, option.WithoutAuthentication())...)
	if err != nil {
		return nil, fmt.Errorf("create Drive client: %w", err)
	}
	return &DriveGateway{svc: svc, folderID: cfg.FolderID, degraded: true}, nil
}

// Degraded reports whether the gateway runs without credentials.
func (g *DriveGateway) Degraded() bool {
	return g.degraded
}

// Create uploads r as a new file named title in the configured folder.
func (g *DriveGateway) Create(ctx context.Context, r io.Reader, mimeType, title string) (string, error) {
	meta := &drive.File{Name: title}
	if g.folderID != "" {
		meta.Parents = []string{g.folderID}
	}

	var mediaOpts []googleapi.MediaOption
	if mimeType != "" {
		meta.MimeType = mimeType
		mediaOpts = append(mediaOpts, googleapi.ContentType(mimeType))
	}

	created, err := g.svc.Files.Create(meta).
		Media(r, mediaOpts...).
		Fields("id, name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload to Drive: %w", err)
	}
	if created.Id == "" {
		return "", ErrNoFileID
	}
	return created.Id, nil
}

// GrantPublicRead gives anyone with the link reader access to the file.
func (g *DriveGateway) GrantPublicRead(ctx context.Context, id string) error {
	_, err := g.svc.Permissions.Create(id, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("share Drive file %s: %w", id, err)
	}
	return nil
}

// Delete permanently removes the file.
func (g *DriveGateway) Delete(ctx context.Context, id string) error {
	err := g.svc.Files.Delete(id).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("delete Drive file %s: %w", id, err)
	}
	return nil
}

// PublicURLs returns the Drive preview and download links for id.
func (g *DriveGateway) PublicURLs(id string) Links {
	escaped := url.QueryEscape(id)
	return Links{
		View:     fmt.Sprintf(driveURLTemplate, "preview", escaped),
		Download: fmt.Sprintf(driveURLTemplate, "download", escaped),
	}
}
