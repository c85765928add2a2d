// Package storage archives the raw CSV uploads of each run so a run can be
// audited or replayed later. Artifacts live under <run-id>/mail.csv and
// <run-id>/crm.csv on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"io"
)

// ArtifactStore defines the interface for run-artifact storage.
type ArtifactStore interface {
	// Upload stores an artifact under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download retrieves an artifact by key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL recorded on the run for an artifact.
	GetURL(key string) string

	// Delete removes an artifact.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an artifact exists.
	Exists(ctx context.Context, key string) (bool, error)
}
