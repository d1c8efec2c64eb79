// Package catalog holds the list of uploaded videos and its on-disk mirror.
package catalog

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no video has the requested ID.
	ErrNotFound = errors.New("catalog: video not found")
	// ErrDuplicateID is returned when adding a video whose ID is already present.
	ErrDuplicateID = errors.New("catalog: duplicate video ID")
)

// Video is a catalog record. JSON names match the persisted file format.
type Video struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	StorageID      string `json:"driveFileId"`
	Uploader       string `json:"uploader"`
	UploadedByName string `json:"uploadedByName"`
	CreatedAt      int64  `json:"createdAt"` // Unix milliseconds
	ViewURL        string `json:"viewUrl"`
	DownloadURL    string `json:"downloadUrl"`
}

// MatchesTitle reports whether the title contains query, ignoring case.
// An empty query matches every video.
func (v Video) MatchesTitle(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(v.Title), strings.ToLower(query))
}

// Repository is the persistence port for catalog records.
type Repository interface {
	// Add inserts v at the front of the catalog and persists the result.
	// Returns ErrDuplicateID if a video with the same ID exists.
	Add(ctx context.Context, v Video) error

	// Get returns the video with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (Video, error)

	// Remove deletes the video with the given ID, persists the result and
	// returns the removed record. Returns ErrNotFound if it does not exist.
	Remove(ctx context.Context, id string) (Video, error)

	// Search returns, newest first, the videos whose title contains query
	// case-insensitively. An empty query returns every video.
	Search(ctx context.Context, query string) ([]Video, error)
}
