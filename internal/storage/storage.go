// Package storage provides per-request temporary files and an optional
// S3 archive for rendered videos. It defines the Storage interface (port)
// and implementations for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and archived file storage.
// Every temp path it hands out is unique, so concurrent requests never
// share a file.
type Storage interface {
	// SaveTemp writes data to a new temporary file and returns its path.
	// The name parameter is used as a prefix for the filename. A partially
	// written file is removed before the error is returned.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// ReserveTemp creates an empty temporary file whose name starts with
	// name and ends with ext, and returns its path. It is used for outputs
	// written by external tools.
	ReserveTemp(ctx context.Context, name, ext string) (path string, err error)

	// LoadTemp opens a temporary file for reading.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the object URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
