// Package storage abstracts the object store the image pipeline uploads to.
// Production targets an S3 bucket; development targets a local public
// directory with the same content-addressed key layout.
package storage

import (
	"context"

	"github.com/hollandwest/skadi/internal"
)

// Storage defines the operations the image pipeline needs from an object
// store: an existence check (for cache reuse) and an upload.
type Storage interface {
	// Exists reports whether an object is already stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Upload copies the file at localPath to key and returns its public URL.
	// Keys are content-addressed, so re-uploading identical content is
	// redundant but harmless.
	Upload(ctx context.Context, localPath, key string) (string, error)

	// URL returns the public URL for a stored key.
	// For local storage this is a relative path; for S3 a full HTTPS URL.
	URL(key string) string
}

// NewStorage creates a Storage implementation based on configuration.
// Returns LocalStorage for the "local" provider, S3Storage for "s3".
func NewStorage(cfg internal.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "s3":
		return NewS3Storage(S3Config{
			Region:      cfg.S3Region,
			Bucket:      cfg.S3Bucket,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretKey,
			Endpoint:    cfg.S3Endpoint,
			PublicURL:   cfg.S3PublicURL,
		})
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}
