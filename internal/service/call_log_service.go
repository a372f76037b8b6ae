package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/storage"
	"go.uber.org/zap"
)

// CSVHeader is the first line of every call log export
var CSVHeader = []string{"From", "To", "Call Date", "Call Time"}

// CallLogExport is a rendered CSV file
type CallLogExport struct {
	Filename string
	Content  []byte
	Rows     int
	// ArchiveKey is set when a copy was stored in the export archive
	ArchiveKey string
}

// CallLogView is the read-only call history screen
type CallLogView struct {
	source  CallLogSource
	archive storage.Archive
	feed    *NotificationFeed
	logger  *zap.Logger

	location   *time.Location
	dateFormat string
	timeFormat string
	now        func() time.Time

	mu   sync.RWMutex
	logs []domain.CallLogEntry
}

// NewCallLogView creates the view. archive may be nil to disable export archiving.
func NewCallLogView(source CallLogSource, archive storage.Archive, cfg *config.ExportConfig, feed *NotificationFeed, logger *zap.Logger) *CallLogView {
	dateFormat, timeFormat := cfg.DateFormat, cfg.TimeFormat
	if dateFormat == "" {
		dateFormat = "1/2/2006"
	}
	if timeFormat == "" {
		timeFormat = "3:04:05 PM"
	}
	return &CallLogView{
		source:     source,
		archive:    archive,
		feed:       feed,
		logger:     logger,
		location:   cfg.Location(),
		dateFormat: dateFormat,
		timeFormat: timeFormat,
		now:        time.Now,
		logs:       []domain.CallLogEntry{},
	}
}

// FetchLogs reloads the call history, replacing the previous snapshot
func (s *CallLogView) FetchLogs(ctx context.Context) ([]domain.CallLogEntry, error) {
	logs, err := s.source.ListCallLogs(ctx)
	if err != nil {
		berr := newBackendError(err, "Failed to fetch call logs.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to fetch call logs", zap.Error(err))
		return nil, berr
	}

	s.mu.Lock()
	s.logs = append([]domain.CallLogEntry(nil), logs...)
	s.mu.Unlock()

	return logs, nil
}

// View returns the cached history for mode, narrowed by search.
// An unknown mode falls back to the latest-per-caller view.
func (s *CallLogView) View(mode domain.CallLogViewMode, search string) []domain.CallLogEntry {
	s.mu.RLock()
	logs := make([]domain.CallLogEntry, len(s.logs))
	copy(logs, s.logs)
	s.mu.RUnlock()

	if mode != domain.CallLogViewAll {
		logs = LatestPerCaller(logs)
	}
	return Search(logs, search)
}

// ExportCSV renders the current view as CSV and, when an archive is
// configured, stores a copy of it
func (s *CallLogView) ExportCSV(ctx context.Context, mode domain.CallLogViewMode, search string) (*CallLogExport, error) {
	entries := s.View(mode, search)

	content, err := s.renderCSV(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to render call log export: %w", err)
	}

	export := &CallLogExport{
		Filename: ExportFilename(s.now()),
		Content:  content,
		Rows:     len(entries),
	}

	if s.archive != nil {
		key, size, err := s.archive.Store(ctx, export.Filename, "text/csv", bytes.NewReader(content))
		if err != nil {
			s.logger.Warn("failed to archive call log export",
				zap.String("filename", export.Filename),
				zap.Error(err),
			)
		} else {
			export.ArchiveKey = key
			s.logger.Info("call log export archived",
				zap.String("key", key),
				zap.Int64("size", size),
			)
		}
	}

	exportsCounter.Inc()
	s.feed.Success("Export Successful", fmt.Sprintf("Exported %d call logs to CSV.", export.Rows))
	return export, nil
}

// OpenArchivedExport reads back an export stored under key. The caller
// closes the reader.
func (s *CallLogView) OpenArchivedExport(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("export archive disabled: %w", ErrNotFound)
	}

	rc, err := s.archive.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("archived export %s: %w", key, ErrNotFound)
		}
		s.logger.Error("failed to open archived export", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to open archived export: %w", err)
	}
	return rc, nil
}

// RemoveArchivedExport deletes an archived export; unknown keys are ignored
func (s *CallLogView) RemoveArchivedExport(ctx context.Context, key string) error {
	if s.archive == nil {
		return fmt.Errorf("export archive disabled: %w", ErrNotFound)
	}

	if err := s.archive.Remove(ctx, key); err != nil {
		s.logger.Error("failed to remove archived export", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to remove archived export: %w", err)
	}
	s.logger.Info("archived export removed", zap.String("key", key))
	return nil
}

func (s *CallLogView) renderCSV(entries []domain.CallLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		called := e.Called
		if called == "" {
			called = "N/A"
		}
		at := e.CreatedAt.In(s.location)
		if err := w.Write([]string{
			e.PhoneNumber,
			called,
			at.Format(s.dateFormat),
			at.Format(s.timeFormat),
		}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names an export call-logs-<YYYY-MM-DD>.csv using the UTC date
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("call-logs-%s.csv", now.UTC().Format("2006-01-02"))
}

// LatestPerCaller keeps the most recent entry of each caller, most recent first
func LatestPerCaller(logs []domain.CallLogEntry) []domain.CallLogEntry {
	latest := make(map[string]domain.CallLogEntry, len(logs))
	for _, e := range logs {
		if cur, ok := latest[e.PhoneNumber]; !ok || e.CreatedAt.After(cur.CreatedAt) {
			latest[e.PhoneNumber] = e
		}
	}

	out := make([]domain.CallLogEntry, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PhoneNumber < out[j].PhoneNumber
	})
	return out
}

// Search keeps entries whose caller number contains term, ignoring case.
// An empty term keeps everything.
func Search(logs []domain.CallLogEntry, term string) []domain.CallLogEntry {
	term = strings.ToLower(term)
	if term == "" {
		return logs
	}

	out := make([]domain.CallLogEntry, 0, len(logs))
	for _, e := range logs {
		if strings.Contains(strings.ToLower(e.PhoneNumber), term) {
			out = append(out, e)
		}
	}
	return out
}
