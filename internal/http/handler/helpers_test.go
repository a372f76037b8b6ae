package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/thetyagiayush/warhol-ringmaster/internal/backend"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/repository"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"github.com/thetyagiayush/warhol-ringmaster/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeCallingBackend is an in-memory calling backend
type fakeCallingBackend struct {
	mu sync.Mutex

	numbers   []domain.NumberMapping
	logs      []domain.CallLogEntry
	breakdown *domain.CostBreakdown

	addErr   error
	added    []domain.AddNumberInput
	deleted  []int64
	webhooks []string
	batches  [][]string

	// release, when set, blocks SendBlast until closed
	release chan struct{}
}

func (f *fakeCallingBackend) ListNumbers(ctx context.Context) ([]domain.NumberMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.NumberMapping{}, f.numbers...), nil
}

func (f *fakeCallingBackend) AddNumber(ctx context.Context, in domain.AddNumberInput) (*domain.NumberMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, in)
	if f.addErr != nil {
		return nil, f.addErr
	}
	m := domain.NumberMapping{ID: int64(len(f.numbers) + 100), PhoneNumber: in.PhoneNumber, TextContent: in.TextContent, AudioURL: "https://cdn/" + in.Audio.Filename}
	f.numbers = append(f.numbers, m)
	return &m, nil
}

func (f *fakeCallingBackend) UpdateText(ctx context.Context, id int64, text string) (*domain.NumberMapping, error) {
	return &domain.NumberMapping{ID: id, TextContent: text}, nil
}

func (f *fakeCallingBackend) UpdateAudio(ctx context.Context, id int64, audio *domain.AudioFile) (*domain.NumberMapping, error) {
	return &domain.NumberMapping{ID: id, AudioURL: "https://cdn/" + audio.Filename}, nil
}

func (f *fakeCallingBackend) DeleteNumber(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCallingBackend) ConfigureWebhook(ctx context.Context, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, phoneNumber)
	return nil
}

func (f *fakeCallingBackend) ListCallLogs(ctx context.Context) ([]domain.CallLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CallLogEntry{}, f.logs...), nil
}

func (f *fakeCallingBackend) SendBlast(ctx context.Context, message string, numbers []string) (*domain.SendBlastResult, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, numbers)
	return &domain.SendBlastResult{SentCount: len(numbers)}, nil
}

func (f *fakeCallingBackend) GetCostBreakdown(ctx context.Context, req domain.CostBreakdownRequest) (*domain.CostBreakdown, error) {
	if f.breakdown == nil {
		return nil, &backend.Error{Op: "get cost breakdown", Kind: backend.KindApplication, Message: "Cost ledger unavailable"}
	}
	b := *f.breakdown
	return &b, nil
}

func (f *fakeCallingBackend) UpdateBudget(ctx context.Context, total float64) (*domain.BudgetUpdate, error) {
	return &domain.BudgetUpdate{TotalBudget: total}, nil
}

type testEnv struct {
	backend    *fakeCallingBackend
	feed       *service.NotificationFeed
	registry   *service.NumberRegistry
	callLogs   *service.CallLogView
	dispatcher *service.BlastDispatcher
	dashboard  *service.CostDashboard
	filters    *repository.CustomFilterRepository
	db         *gorm.DB
}

func newTestEnv(t *testing.T, fake *fakeCallingBackend) *testEnv {
	t.Helper()
	log := zap.NewNop()
	feed := service.NewNotificationFeed(50)
	db := testutil.SetupFilterStore(t)
	filters := repository.NewCustomFilterRepository(db)

	return &testEnv{
		backend:  fake,
		feed:     feed,
		registry: service.NewNumberRegistry(fake, feed, log),
		callLogs: service.NewCallLogView(fake, nil, &config.ExportConfig{TimeZone: "UTC"}, feed, log),
		dispatcher: service.NewBlastDispatcher(fake, filters, &config.BlastConfig{
			BatchSize:        2,
			BatchDelayMs:     0,
			MaxMessageLength: 160,
			AbortOnFailure:   true,
		}, feed, log),
		dashboard: service.NewCostDashboard(fake, feed, log),
		filters:   filters,
		db:        db,
	}
}

// withChiContext attaches chi URL params to the request
func withChiContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, filename string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("audio_file", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
}

func sampleLogs() []domain.CallLogEntry {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []domain.CallLogEntry{
		{ID: "1", PhoneNumber: "+15550001", Called: "+18005550100", CreatedAt: base},
		{ID: "2", PhoneNumber: "+15550002", Called: "+18005550100", CreatedAt: base.Add(time.Minute)},
		{ID: "3", PhoneNumber: "+15550001", Called: "+18005550199", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "4", PhoneNumber: "anonymous", Called: "+18005550100", CreatedAt: base.Add(3 * time.Minute)},
		{ID: "5", PhoneNumber: "+15550003", CreatedAt: base.Add(4 * time.Minute)},
	}
}
