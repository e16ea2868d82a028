// Package storage publishes comparison artifacts to object storage and
// fetches remote profile inputs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
)

// Storage defines the interface for object storage operations.
type Storage interface {
	// Upload uploads data from reader to the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile uploads a local file to the specified key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download opens the object at key. Missing objects yield a
	// NOT_FOUND error.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes the object at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns where the object at key can be fetched from.
	URL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// RemotePrefix marks profile inputs that live in the configured storage,
// e.g. "store://baseline/cpu.folded".
const RemotePrefix = "store://"

// IsRemote reports whether input names an object in storage.
func IsRemote(input string) bool {
	return strings.HasPrefix(input, RemotePrefix)
}

// KeyOf strips RemotePrefix from input.
func KeyOf(input string) string {
	return strings.TrimPrefix(input, RemotePrefix)
}

// NewStorage creates a new Storage instance based on the configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
			BaseURL:   cfg.BaseURL,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	storageType := StorageType(cfg.Type)

	// Empty type defaults to local
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	switch storageType {
	case StorageTypeCOS:
		if cfg.BaseURL == "" {
			if cfg.Bucket == "" {
				return apperrors.New(apperrors.CodeConfigError, "COS bucket is required")
			}
			if cfg.Region == "" {
				return apperrors.New(apperrors.CodeConfigError, "COS region is required")
			}
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	case StorageTypeLocal:
		if cfg.LocalPath == "" {
			return apperrors.New(apperrors.CodeConfigError, "local storage path is required")
		}
	default:
		return apperrors.New(apperrors.CodeConfigError, fmt.Sprintf("unsupported storage type: %s", cfg.Type))
	}
	return nil
}

// Publisher uploads the artifacts of one comparison under a common prefix.
type Publisher struct {
	store  Storage
	prefix string
}

// NewPublisher creates a publisher that stores objects below prefix.
func NewPublisher(store Storage, prefix string) *Publisher {
	return &Publisher{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of file for report id.
func (p *Publisher) Key(id, file string) string {
	return path.Join(p.prefix, id, filepath.Base(file))
}

// Publish uploads every local file of report id and returns their URLs in
// input order.
func (p *Publisher) Publish(ctx context.Context, id string, files []string) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, file := range files {
		key := p.Key(id, file)
		if err := p.store.UploadFile(ctx, key, file); err != nil {
			return urls, err
		}
		urls = append(urls, p.store.URL(key))
	}
	return urls, nil
}

// Open opens input from storage when it carries RemotePrefix.
func Open(ctx context.Context, store Storage, input string) (io.ReadCloser, error) {
	if !IsRemote(input) {
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("not a storage input: %s", input))
	}
	if store == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, fmt.Sprintf("storage is disabled, cannot open %s", input))
	}
	return store.Download(ctx, KeyOf(input))
}
