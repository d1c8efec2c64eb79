package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Compile-time check that FileStore implements Repository.
var _ Repository = (*FileStore)(nil)

// FileStore keeps the catalog in memory and mirrors it to a JSON file.
// Every mutation runs under the write lock and rewrites the whole file, so
// concurrent writers are serialized and no update is lost. Reads return copies.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	videos []Video
	logger *slog.Logger
}

// OpenFileStore loads the catalog from path.
// A missing, empty or unparseable file yields an empty catalog; the parse
// failure is logged. Other read errors are returned.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		path:   path,
		videos: []Video{},
		logger: logger,
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("catalog file not found, starting empty", slog.String("path", path))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	case len(data) == 0:
		return s, nil
	}

	var videos []Video
	if err := json.Unmarshal(data, &videos); err != nil {
		logger.Warn("catalog file is not valid JSON, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return s, nil
	}
	if videos != nil {
		s.videos = videos
	}

	logger.Info("catalog loaded",
		slog.String("path", path),
		slog.Int("videos", len(s.videos)),
	)
	return s, nil
}

// Path returns the location of the persisted catalog.
func (s *FileStore) Path() string {
	return s.path
}

// Add inserts v at the front of the catalog and persists the result.
// If persisting fails the in-memory catalog is left unchanged.
func (s *FileStore) Add(ctx context.Context, v Video) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(v.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, v.ID)
	}

	next := make([]Video, 0, len(s.videos)+1)
	next = append(next, v)
	next = append(next, s.videos...)

	if err := s.persist(next); err != nil {
		return err
	}
	s.videos = next
	return nil
}

// Get returns the video with the given ID.
func (s *FileStore) Get(_ context.Context, id string) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Video{}, ErrNotFound
	}
	return s.videos[i], nil
}

// Remove deletes the video with the given ID and persists the result.
// If persisting fails the in-memory catalog is left unchanged.
func (s *FileStore) Remove(ctx context.Context, id string) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, fmt.Errorf("catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Video{}, ErrNotFound
	}
	removed := s.videos[i]

	next := slices.Delete(slices.Clone(s.videos), i, i+1)
	if err := s.persist(next); err != nil {
		return Video{}, err
	}
	s.videos = next
	return removed, nil
}

// Search returns the videos whose title contains query, in catalog order.
func (s *FileStore) Search(_ context.Context, query string) ([]Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Video, 0, len(s.videos))
	for _, v := range s.videos {
		if v.MatchesTitle(query) {
			result = append(result, v)
		}
	}
	return result, nil
}

// Len returns the number of videos in the catalog.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.videos)
}

func (s *FileStore) indexOf(id string) int {
	return slices.IndexFunc(s.videos, func(v Video) bool { return v.ID == id })
}

// persist writes videos to a temp file next to the catalog and renames it
// over the catalog. Callers must hold the write lock.
func (s *FileStore) persist(videos []Video) error {
	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("catalog: create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("catalog: create temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("catalog: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("catalog: close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("catalog: replace %s: %w", s.path, err)
	}
	return nil
}
