package storage

import (
	"fmt"

	"github.com/ZAX3000/mailtrace/internal/config"
)

// NewStore creates an ArtifactStore from configuration: local disk by
// default, an S3-compatible bucket when configured.
func NewStore(cfg *config.StorageConfig) (ArtifactStore, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			PublicURL: cfg.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
