// Package storage keeps archived copies of call log exports, either on the
// local filesystem or in Azure Blob Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Open for keys that are not in the archive
var ErrNotFound = errors.New("archived export not found")

// Archive stores export files under generated, date-partitioned keys
type Archive interface {
	Store(ctx context.Context, filename string, contentType string, data io.Reader) (string, int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// NewArchive creates the archive backend selected by storage.mode
func NewArchive(cfg *config.StorageConfig, logger *zap.Logger) (Archive, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalArchive(cfg.LocalBasePath, logger)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobArchive(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// ObjectKey builds exports/<yyyy>/<mm>/<dd>/<name>-<id><ext> for filename.
// Keys always use forward slashes.
func ObjectKey(filename string, now time.Time) string {
	base := path.Base(filepath.ToSlash(filename))
	if base == "." || base == "/" {
		base = "export"
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "export"
	}
	id := uuid.New().String()[:8]
	return path.Join("exports", now.Format("2006"), now.Format("01"), now.Format("02"), stem+"-"+id+ext)
}

// LocalArchive keeps exports on the local filesystem
type LocalArchive struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalArchive creates basePath if needed
func NewLocalArchive(basePath string, logger *zap.Logger) (*LocalArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalArchive{
		basePath: basePath,
		logger:   logger,
	}, nil
}

func (s *LocalArchive) Store(ctx context.Context, filename string, contentType string, data io.Reader) (string, int64, error) {
	key := ObjectKey(filename, time.Now())
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Export archived locally",
		zap.String("key", key),
		zap.String("contentType", contentType),
		zap.Int64("size", size),
	)

	return key, size, nil
}

func (s *LocalArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Remove is a no-op for keys that no longer exist
func (s *LocalArchive) Remove(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps a key to a path inside basePath
func (s *LocalArchive) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
