package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)
	return storage
}

func TestNewLocalStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "storage")

	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, storage.BasePath())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_UploadAndDownload(t *testing.T) {
	storage := newLocal(t)
	ctx := context.Background()

	content := []byte("main;run;work 10\n")
	require.NoError(t, storage.Upload(ctx, "base/cpu.folded", bytes.NewReader(content)))

	rc, err := storage.Download(ctx, "base/cpu.folded")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	// Overwrite replaces the object.
	require.NoError(t, storage.Upload(ctx, "base/cpu.folded", bytes.NewReader([]byte("x 1\n"))))
	data, err = os.ReadFile(storage.URL("base/cpu.folded"))
	require.NoError(t, err)
	assert.Equal(t, "x 1\n", string(data))

	entries, err := os.ReadDir(filepath.Join(storage.BasePath(), "base"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStorage_UploadFile(t *testing.T) {
	storage := newLocal(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"id":"1"}`), 0644))

	require.NoError(t, storage.UploadFile(ctx, "reports/1/report.json", src))
	ok, err := storage.Exists(ctx, "reports/1/report.json")
	require.NoError(t, err)
	assert.True(t, ok)

	err = storage.UploadFile(ctx, "x", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, apperrors.CodeStorageError, apperrors.GetErrorCode(err))
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	storage := newLocal(t)

	_, err := storage.Download(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLocalStorage_Delete(t *testing.T) {
	storage := newLocal(t)
	ctx := context.Background()

	require.NoError(t, storage.Upload(ctx, "a", bytes.NewReader([]byte("1"))))
	require.NoError(t, storage.Delete(ctx, "a"))

	ok, err := storage.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is fine.
	assert.NoError(t, storage.Delete(ctx, "a"))
}

func TestLocalStorage_Exists_Directory(t *testing.T) {
	storage := newLocal(t)
	ctx := context.Background()

	require.NoError(t, storage.Upload(ctx, "dir/file", bytes.NewReader([]byte("1"))))
	ok, err := storage.Exists(ctx, "dir")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_InvalidKeys(t *testing.T) {
	storage := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "/", "../escape", "a/../../b"} {
		err := storage.Upload(ctx, key, bytes.NewReader(nil))
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err), "key %q", key)
	}
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	storage := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := storage.Upload(ctx, "a", bytes.NewReader([]byte("1")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = storage.Download(ctx, "a")
	assert.Equal(t, apperrors.CodeCanceled, apperrors.GetErrorCode(err))
}

func TestPublisher(t *testing.T) {
	storage := newLocal(t)
	ctx := context.Background()

	dir := t.TempDir()
	files := []string{filepath.Join(dir, "report.json"), filepath.Join(dir, "flame.json")}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte(filepath.Base(f)), 0644))
	}

	p := NewPublisher(storage, "/reports/")
	assert.Equal(t, "reports/id-1/report.json", p.Key("id-1", files[0]))

	urls, err := p.Publish(ctx, "id-1", files)
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Equal(t, filepath.Join(storage.BasePath(), "reports", "id-1", "flame.json"), urls[1])

	rc, err := Open(ctx, storage, RemotePrefix+"reports/id-1/report.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "report.json", string(data))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, nil, "local.folded")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))

	_, err = Open(ctx, nil, "store://a")
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
}

func TestRemoteInputs(t *testing.T) {
	assert.True(t, IsRemote("store://x/y"))
	assert.False(t, IsRemote("/tmp/x"))
	assert.Equal(t, "x/y", KeyOf("store://x/y"))
}

func TestNewStorage_Local(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(&config.StorageConfig{Type: "local", LocalPath: dir})
	require.NoError(t, err)

	local, ok := storage.(*LocalStorage)
	require.True(t, ok)
	assert.Equal(t, dir, local.BasePath())
}
