// Package storage provides temporary upload staging on local disk and
// gateways to the remote object stores that hold video content.
package storage

import (
	"context"
	"io"
)

// TempStorage stages uploaded files on local disk before they are forwarded.
type TempStorage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a temporary file for reading.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}

// Links are the public URLs of a stored object.
type Links struct {
	View     string
	Download string
}

// Gateway is the remote object store holding video content.
type Gateway interface {
	// Create stores the content of r under the configured destination and
	// returns the provider's identifier for it.
	Create(ctx context.Context, r io.Reader, mimeType, title string) (id string, err error)

	// GrantPublicRead makes the object readable by anyone holding its URL.
	GrantPublicRead(ctx context.Context, id string) error

	// Delete removes the object.
	Delete(ctx context.Context, id string) error

	// PublicURLs derives the view and download URLs for id without any I/O.
	PublicURLs(id string) Links
}
