package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage - хранилище вложений тикетов
type Storage interface {
	// Save stores a file under key
	Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Delete removes a file; missing files are not an error
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key
	URL(key string) string
}

// Config holds storage configuration
type Config struct {
	Type      string // local, s3
	BasePath  string // For local storage
	BaseURL   string // Public URL base
	Bucket    string // For S3/R2
	Region    string // For S3
	AccessKey string
	SecretKey string
	Endpoint  string // For R2 or custom S3
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
