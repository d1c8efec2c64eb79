// Package video provides the upload, listing and deletion use cases.
// It coordinates temporary staging, the remote storage gateway and the catalog.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/maauso/purplestream-api/internal/catalog"
	"github.com/maauso/purplestream-api/internal/catalog/id"
	"github.com/maauso/purplestream-api/internal/identity"
	"github.com/maauso/purplestream-api/internal/storage"
)

const octetStream = "application/octet-stream"

var (
	// ErrNoFile is returned when an upload carries no file.
	ErrNoFile = errors.New("video: no file uploaded")
	// ErrUploadFailed wraps every failure between staging and cataloguing an upload.
	ErrUploadFailed = errors.New("video: upload failed")
	// ErrForbidden is returned when the caller may not delete a video.
	ErrForbidden = errors.New("video: not authorized")
	// ErrDeleteFailed is returned when the catalog cannot persist a removal.
	ErrDeleteFailed = errors.New("video: delete failed")
)

// UploadInput describes a staged upload.
type UploadInput struct {
	// TempPath is the staged file returned by Stage.
	TempPath string
	// Filename is the name the client sent for the file part.
	Filename string
	// Title is the optional title field. Empty falls back to Filename.
	Title string
	// MimeType is the part's declared content type, if any.
	MimeType string
	// Uploader is the authenticated caller.
	Uploader identity.Profile
}

// Service implements the video use cases.
type Service struct {
	catalog catalog.Repository
	gateway storage.Gateway
	temp    storage.TempStorage
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the time source for record IDs and creation timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service.
func NewService(
	repo catalog.Repository,
	gateway storage.Gateway,
	temp storage.TempStorage,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalog: repo,
		gateway: gateway,
		temp:    temp,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage copies an incoming file to temporary storage and returns its path.
func (s *Service) Stage(ctx context.Context, filename string, r io.Reader) (string, error) {
	path, err := s.temp.SaveTemp(ctx, filename, r)
	if err != nil {
		return "", fmt.Errorf("%w: stage %q: %w", ErrUploadFailed, filename, err)
	}
	return path, nil
}

// Upload forwards a staged file to the gateway, makes it publicly readable,
// and prepends the resulting record to the catalog. The staged file is removed
// on success and left in place on failure.
func (s *Service) Upload(ctx context.Context, in UploadInput) (catalog.Video, error) {
	if in.TempPath == "" {
		return catalog.Video{}, ErrNoFile
	}

	title := in.Title
	if title == "" {
		title = in.Filename
	}
	mimeType := s.detectMime(in.TempPath, in.MimeType)

	logger := s.logger.With(
		slog.String("uploader", in.Uploader.Username),
		slog.String("title", title),
	)
	logger.Info("uploading video", slog.String("mime_type", mimeType))

	storageID, err := s.push(ctx, in.TempPath, mimeType, title)
	if err != nil {
		logger.Error("upload to storage gateway failed", slog.String("error", err.Error()))
		return catalog.Video{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if err := s.gateway.GrantPublicRead(ctx, storageID); err != nil {
		logger.Error("failed to share uploaded video",
			slog.String("storage_id", storageID),
			slog.String("error", err.Error()),
		)
		return catalog.Video{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	links := s.gateway.PublicURLs(storageID)
	now := s.now()
	v := catalog.Video{
		ID:             id.GenerateAt(now),
		Title:          title,
		StorageID:      storageID,
		Uploader:       in.Uploader.Username,
		UploadedByName: in.Uploader.DisplayName,
		CreatedAt:      now.UnixMilli(),
		ViewURL:        links.View,
		DownloadURL:    links.Download,
	}

	if err := s.catalog.Add(ctx, v); err != nil {
		logger.Error("failed to record uploaded video",
			slog.String("storage_id", storageID),
			slog.String("error", err.Error()),
		)
		return catalog.Video{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if err := s.temp.CleanupTemp(ctx, []string{in.TempPath}); err != nil {
		logger.Warn("failed to remove staged upload",
			slog.String("path", in.TempPath),
			slog.String("error", err.Error()),
		)
	}

	logger.Info("video uploaded",
		slog.String("video_id", v.ID),
		slog.String("storage_id", storageID),
	)
	return v, nil
}

func (s *Service) push(ctx context.Context, path, mimeType, title string) (string, error) {
	f, err := s.temp.LoadTemp(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return s.gateway.Create(ctx, f, mimeType, title)
}

// detectMime keeps a declared type unless it is missing or generic, in which
// case the staged content is sniffed.
func (s *Service) detectMime(path, declared string) string {
	if declared != "" && declared != octetStream {
		return declared
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		s.logger.Debug("mime detection failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return octetStream
	}
	return m.String()
}

// List returns the catalog newest first, filtered by a case-insensitive title
// substring when query is non-empty.
func (s *Service) List(ctx context.Context, query string) ([]catalog.Video, error) {
	return s.catalog.Search(ctx, query)
}

// Delete removes a video the caller owns, or any video if the caller is an
// admin. A failure to delete the remote object is logged and does not stop
// the catalog removal.
func (s *Service) Delete(ctx context.Context, caller identity.Profile, videoID string) error {
	v, err := s.catalog.Get(ctx, videoID)
	if err != nil {
		return err
	}

	if !caller.IsAdmin && caller.Username != v.Uploader {
		s.logger.Warn("delete refused",
			slog.String("video_id", videoID),
			slog.String("caller", caller.Username),
			slog.String("uploader", v.Uploader),
		)
		return ErrForbidden
	}

	if err := s.gateway.Delete(ctx, v.StorageID); err != nil {
		s.logger.Warn("failed to delete video from storage gateway",
			slog.String("video_id", videoID),
			slog.String("storage_id", v.StorageID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.catalog.Remove(ctx, videoID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	s.logger.Info("video deleted",
		slog.String("video_id", videoID),
		slog.String("caller", caller.Username),
	)
	return nil
}
