package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/storage"
	"go.uber.org/zap"
)

func TestArchiveInterfaceCompliance(t *testing.T) {
	var _ storage.Archive = (*storage.LocalArchive)(nil)
	var _ storage.Archive = (*storage.AzureBlobArchive)(nil)
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filename string
		prefix   string
		ext      string
	}{
		{name: "csv export", filename: "call-logs-2026-03-07.csv", prefix: "exports/2026/03/07/call-logs-2026-03-07-", ext: ".csv"},
		{name: "path is stripped", filename: "../../etc/passwd", prefix: "exports/2026/03/07/passwd-", ext: ""},
		{name: "empty name", filename: "", prefix: "exports/2026/03/07/export-", ext: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := storage.ObjectKey(tt.filename, now)
			assert.True(t, strings.HasPrefix(key, tt.prefix), key)
			assert.True(t, strings.HasSuffix(key, tt.ext), key)
			assert.NotContains(t, key, "..")
		})
	}

	t.Run("keys are unique", func(t *testing.T) {
		assert.NotEqual(t, storage.ObjectKey("a.csv", now), storage.ObjectKey("a.csv", now))
	})
}

func TestNewLocalArchive_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "exports")

	archive, err := storage.NewLocalArchive(basePath, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, archive)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalArchive_StoreOpenRemove(t *testing.T) {
	archive, err := storage.NewLocalArchive(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	content := "From,To,Call Date,Call Time\n+1555,+1800,1/2/2026,3:04:05 PM\n"
	key, size, err := archive.Store(ctx, "call-logs-2026-01-02.csv", "text/csv", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.True(t, strings.HasSuffix(key, ".csv"))

	rc, err := archive.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	require.NoError(t, archive.Remove(ctx, key))

	_, err = archive.Open(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	t.Run("remove missing key is no-op", func(t *testing.T) {
		assert.NoError(t, archive.Remove(ctx, key))
	})
}

func TestLocalArchive_RejectsEmptyKey(t *testing.T) {
	archive, err := storage.NewLocalArchive(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = archive.Open(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, archive.Remove(context.Background(), "/"))
}

func TestLocalArchive_StoreReaderError(t *testing.T) {
	dir := t.TempDir()
	archive, err := storage.NewLocalArchive(dir, zap.NewNop())
	require.NoError(t, err)

	_, _, err = archive.Store(context.Background(), "broken.csv", "text/csv", io.MultiReader(bytes.NewReader([]byte("x")), errReader{}))
	assert.Error(t, err)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestNewArchive(t *testing.T) {
	t.Run("local mode", func(t *testing.T) {
		archive, err := storage.NewArchive(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &storage.LocalArchive{}, archive)
	})

	t.Run("azure without connection string", func(t *testing.T) {
		_, err := storage.NewArchive(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := storage.NewArchive(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported storage mode")
	})
}
