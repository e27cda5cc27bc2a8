// Package storage writes listing media to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"earthhome/internal/config"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStore is the subset of object storage the service relies on.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	URL(key string) string
}

// New builds the store selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "r2":
		return NewR2Store(ctx, R2Config{
			AccountID:       cfg.CloudflareAccountID,
			Endpoint:        cfg.R2Endpoint,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
	case "disk", "":
		return NewDiskStore(cfg.StorageDir, DiskURLPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
