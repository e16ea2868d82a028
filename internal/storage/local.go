package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/perf-diff/pkg/errors"
)

// LocalStorage implements Storage on a directory of the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a LocalStorage rooted at basePath, creating the
// directory when needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./storage"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to create storage directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload writes reader to key, replacing any previous object.
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	fullPath, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to create directory", err)
	}

	// Write to a sibling temp file so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to create file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to write %s", key)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to write %s", key)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to store %s", key)
	}
	return nil
}

// UploadFile copies a local file to key.
func (s *LocalStorage) UploadFile(ctx context.Context, key string, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to open source file", err)
	}
	defer src.Close()
	return s.Upload(ctx, key, src)
}

// Download opens the object at key.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("object %s not found", key))
		}
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to open file", err)
	}
	return file, nil
}

// Delete removes the object at key. Deleting a missing object succeeds.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to delete file", err)
	}
	return nil
}

// Exists checks if an object exists at the specified key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(ctx, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.CodeStorageError, "failed to check file existence", err)
	}
	return !info.IsDir(), nil
}

// URL returns the file path of key.
func (s *LocalStorage) URL(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// BasePath returns the root directory of the storage.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// resolve maps key into the base directory. Keys escaping it are rejected.
func (s *LocalStorage) resolve(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(apperrors.CodeCanceled, "storage operation canceled", err)
	}
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) || strings.Contains(key, "..") {
		return "", apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("invalid object key %q", key))
	}
	return filepath.Join(s.basePath, clean), nil
}
