package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"go.uber.org/zap"
)

type recordingArchive struct {
	stored map[string][]byte
	err    error
}

func (a *recordingArchive) Store(ctx context.Context, filename string, contentType string, data io.Reader) (string, int64, error) {
	if a.err != nil {
		return "", 0, a.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", 0, err
	}
	if a.stored == nil {
		a.stored = map[string][]byte{}
	}
	key := "exports/" + filename
	a.stored[key] = raw
	return key, int64(len(raw)), nil
}

func (a *recordingArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.stored[key])), nil
}

func (a *recordingArchive) Remove(ctx context.Context, key string) error {
	delete(a.stored, key)
	return nil
}

func historyLogs() []domain.CallLogEntry {
	at := func(h, m int) time.Time { return time.Date(2026, 4, 2, h, m, 0, 0, time.UTC) }
	return []domain.CallLogEntry{
		{ID: "a", PhoneNumber: "+15551111", Called: "+18000001", CreatedAt: at(9, 0)},
		{ID: "b", PhoneNumber: "+15552222", Called: "+18000001", CreatedAt: at(9, 30)},
		{ID: "c", PhoneNumber: "+15551111", Called: "+18000002", CreatedAt: at(10, 15)},
		{ID: "d", PhoneNumber: "anonymous", CreatedAt: at(11, 0)},
	}
}

func setupCallLogView(t *testing.T, archive *recordingArchive) (*service.CallLogView, *MockBlastBackend, *service.NotificationFeed) {
	t.Helper()

	be := &MockBlastBackend{}
	be.On("ListCallLogs", mock.Anything).Return(historyLogs(), nil)
	feed := service.NewNotificationFeed(0)
	cfg := &config.ExportConfig{TimeZone: "UTC", DateFormat: "1/2/2006", TimeFormat: "3:04:05 PM"}

	var view *service.CallLogView
	if archive != nil {
		view = service.NewCallLogView(be, archive, cfg, feed, zap.NewNop())
	} else {
		view = service.NewCallLogView(be, nil, cfg, feed, zap.NewNop())
	}

	_, err := view.FetchLogs(context.Background())
	require.NoError(t, err)
	return view, be, feed
}

func TestLatestPerCaller(t *testing.T) {
	latest := service.LatestPerCaller(historyLogs())

	require.Len(t, latest, 3)
	assert.Equal(t, "d", latest[0].ID)
	assert.Equal(t, "c", latest[1].ID)
	assert.Equal(t, "b", latest[2].ID)
}

func TestSearch(t *testing.T) {
	logs := []domain.CallLogEntry{
		{ID: "1", PhoneNumber: "+15551111", Called: "+1999"},
		{ID: "2", PhoneNumber: "Anonymous"},
		{ID: "3", PhoneNumber: "+15552222"},
	}

	tests := []struct {
		term string
		want []string
	}{
		{term: "", want: []string{"1", "2", "3"}},
		{term: "1111", want: []string{"1"}},
		{term: "ANON", want: []string{"2"}},
		{term: "1999", want: []string{}},
		{term: "+1555", want: []string{"1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			ids := []string{}
			for _, e := range service.Search(logs, tt.term) {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCallLogView_View(t *testing.T) {
	view, _, _ := setupCallLogView(t, nil)

	assert.Len(t, view.View(domain.CallLogViewAll, ""), 4)
	assert.Len(t, view.View(domain.CallLogViewLatest, ""), 3)
	assert.Len(t, view.View("", ""), 3)

	filtered := view.View(domain.CallLogViewAll, "1111")
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
}

func TestCallLogView_FetchError(t *testing.T) {
	be := &MockBlastBackend{}
	be.On("ListCallLogs", mock.Anything).Return(nil, errors.New("network down"))
	feed := service.NewNotificationFeed(0)
	view := service.NewCallLogView(be, nil, &config.ExportConfig{}, feed, zap.NewNop())

	_, err := view.FetchLogs(context.Background())

	var berr *service.BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "Failed to fetch call logs.", berr.Description)
	assert.Empty(t, view.View(domain.CallLogViewAll, ""))
}

func TestCallLogView_ExportCSV(t *testing.T) {
	view, _, feed := setupCallLogView(t, nil)

	export, err := view.ExportCSV(context.Background(), domain.CallLogViewAll, "")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(export.Content), "\n"), "\n")
	assert.Len(t, lines, 4+1)
	assert.Equal(t, "From,To,Call Date,Call Time", lines[0])
	assert.Equal(t, "+15551111,+18000001,4/2/2026,9:00:00 AM", lines[1])
	assert.Equal(t, "anonymous,N/A,4/2/2026,11:00:00 AM", lines[4])

	records, err := csv.NewReader(bytes.NewReader(export.Content)).ReadAll()
	require.NoError(t, err)
	for _, r := range records {
		assert.Len(t, r, 4)
	}

	assert.Equal(t, 4, export.Rows)
	assert.Regexp(t, `^call-logs-\d{4}-\d{2}-\d{2}\.csv$`, export.Filename)
	assert.Empty(t, export.ArchiveKey)
	assert.Equal(t, "Exported 4 call logs to CSV.", feed.Drain()[0].Description)
}

func TestCallLogView_ExportEscapesFields(t *testing.T) {
	be := &MockBlastBackend{}
	be.On("ListCallLogs", mock.Anything).Return([]domain.CallLogEntry{
		{ID: "x", PhoneNumber: `+1,555 "main"`, Called: "+1800", CreatedAt: time.Date(2026, 4, 2, 15, 4, 5, 0, time.UTC)},
	}, nil)
	view := service.NewCallLogView(be, nil, &config.ExportConfig{TimeZone: "UTC"}, service.NewNotificationFeed(0), zap.NewNop())
	_, err := view.FetchLogs(context.Background())
	require.NoError(t, err)

	export, err := view.ExportCSV(context.Background(), domain.CallLogViewAll, "")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(export.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{`+1,555 "main"`, "+1800", "4/2/2026", "3:04:05 PM"}, records[1])
}

func TestCallLogView_ExportArchives(t *testing.T) {
	archive := &recordingArchive{}
	view, _, _ := setupCallLogView(t, archive)

	export, err := view.ExportCSV(context.Background(), domain.CallLogViewLatest, "")
	require.NoError(t, err)

	assert.Equal(t, "exports/"+export.Filename, export.ArchiveKey)
	assert.Equal(t, export.Content, archive.stored[export.ArchiveKey])
	assert.Equal(t, 3, export.Rows)

	t.Run("archive failure does not fail export", func(t *testing.T) {
		archive.err = errors.New("container gone")
		export, err := view.ExportCSV(context.Background(), domain.CallLogViewLatest, "")
		require.NoError(t, err)
		assert.Empty(t, export.ArchiveKey)
	})
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "call-logs-2026-10-18.csv", service.ExportFilename(at))
}
