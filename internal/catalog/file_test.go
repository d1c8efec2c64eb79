package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videos.json")
	s, err := OpenFileStore(path, testLogger())
	require.NoError(t, err)
	return s, path
}

func sampleVideo(id, title, uploader string) Video {
	return Video{
		ID:             id,
		Title:          title,
		StorageID:      "file-" + id,
		Uploader:       uploader,
		UploadedByName: uploader + " display",
		CreatedAt:      1700000000000,
		ViewURL:        "https://drive.google.com/uc?export=preview&id=file-" + id,
		DownloadURL:    "https://drive.google.com/uc?export=download&id=file-" + id,
	}
}

func TestOpenFileStore(t *testing.T) {
	t.Run("missing file starts empty", func(t *testing.T) {
		s, _ := newTestStore(t)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("empty file starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "videos.json")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		s, err := OpenFileStore(path, testLogger())
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("unparseable file starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "videos.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

		s, err := OpenFileStore(path, testLogger())
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("json null starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "videos.json")
		require.NoError(t, os.WriteFile(path, []byte("null"), 0o600))

		s, err := OpenFileStore(path, testLogger())
		require.NoError(t, err)

		videos, err := s.Search(context.Background(), "")
		require.NoError(t, err)
		assert.NotNil(t, videos)
		assert.Empty(t, videos)
	})

	t.Run("loads existing records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "videos.json")
		content := `[
  {"id": "2", "title": "Second", "driveFileId": "f2", "uploader": "bob", "uploadedByName": "Bob", "createdAt": 2, "viewUrl": "v2", "downloadUrl": "d2"},
  {"id": "1", "title": "First", "driveFileId": "f1", "uploader": "alice", "uploadedByName": "Alice", "createdAt": 1, "viewUrl": "v1", "downloadUrl": "d1"}
]`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		s, err := OpenFileStore(path, testLogger())
		require.NoError(t, err)

		videos, err := s.Search(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, videos, 2)
		assert.Equal(t, "2", videos[0].ID)
		assert.Equal(t, "f2", videos[0].StorageID)
		assert.Equal(t, "Bob", videos[0].UploadedByName)
		assert.Equal(t, "1", videos[1].ID)
	})
}

func TestFileStore_Add_NewestFirstAndRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	first := sampleVideo("1", "Cats", "alice")
	second := sampleVideo("2", "Dogs", "bob")
	require.NoError(t, s.Add(ctx, first))
	require.NoError(t, s.Add(ctx, second))

	videos, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, second, videos[0])
	assert.Equal(t, first, videos[1])

	reloaded, err := OpenFileStore(path, testLogger())
	require.NoError(t, err)
	reloadedVideos, err := reloaded.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, videos, reloadedVideos)
}

func TestFileStore_PersistedFormat(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), sampleVideo("42", "Title", "alice")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "\n  {\n    \"id\": \"42\"")
	for _, key := range []string{"id", "title", "driveFileId", "uploader", "uploadedByName", "createdAt", "viewUrl", "downloadUrl"} {
		assert.Contains(t, out, `"`+key+`"`)
	}
}

func TestFileStore_Add_DuplicateID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, sampleVideo("1", "a", "alice")))
	err := s.Add(ctx, sampleVideo("1", "b", "bob"))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())
}

func TestFileStore_Add_CancelledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Add(ctx, sampleVideo("1", "a", "alice"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len())
}

func TestFileStore_RollsBackOnPersistFailure(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	path := filepath.Join(dir, "videos.json")
	ctx := context.Background()

	s, err := OpenFileStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, sampleVideo("1", "keep", "alice")))

	// Replace the catalog directory with a regular file so writes fail.
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))

	err = s.Add(ctx, sampleVideo("2", "lost", "alice"))
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())

	_, err = s.Remove(ctx, "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title)
}

func TestFileStore_GetAndRemove(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Add(ctx, sampleVideo(fmt.Sprint(i), fmt.Sprintf("video %d", i), "alice")))
	}

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := s.Remove(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "video 2", removed.Title)

	_, err = s.Get(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Remove(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)

	reloaded, err := OpenFileStore(path, testLogger())
	require.NoError(t, err)
	videos, err := reloaded.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "3", videos[0].ID)
	assert.Equal(t, "1", videos[1].ID)
}

func TestFileStore_Search(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, sampleVideo("1", "Holiday in Rome", "alice")))
	require.NoError(t, s.Add(ctx, sampleVideo("2", "Cooking pasta", "bob")))
	require.NoError(t, s.Add(ctx, sampleVideo("3", "ROME by night", "alice")))

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"empty query returns all in order", "", []string{"3", "2", "1"}},
		{"case insensitive", "rome", []string{"3", "1"}},
		{"upper case query", "PASTA", []string{"2"}},
		{"substring", "o", []string{"3", "2", "1"}},
		{"no match", "zebra", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos, err := s.Search(ctx, tt.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(videos))
			for _, v := range videos {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFileStore_SearchReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, sampleVideo("1", "original", "alice")))

	videos, err := s.Search(ctx, "")
	require.NoError(t, err)
	videos[0].Title = "mutated"

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
}

func TestFileStore_ConcurrentAdds(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, sampleVideo(fmt.Sprint(i), "concurrent", "alice")))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())

	reloaded, err := OpenFileStore(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, n, reloaded.Len())
}
