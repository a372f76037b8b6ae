package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thetyagiayush/warhol-ringmaster/internal/backend"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/handler"
	"go.uber.org/zap"
)

func setupNumberHandler(t *testing.T, fake *fakeCallingBackend) (*handler.NumberHandler, *testEnv) {
	t.Helper()
	env := newTestEnv(t, fake)
	return handler.NewNumberHandler(env.registry, 1, zap.NewNop()), env
}

func seededNumbers() *fakeCallingBackend {
	return &fakeCallingBackend{numbers: []domain.NumberMapping{
		{ID: 1, PhoneNumber: "+15550001", AudioURL: "https://cdn/a.mp3", TextContent: "Hello"},
		{ID: 2, PhoneNumber: "+15550002", AudioURL: "https://cdn/b.mp3", TextContent: "Hi"},
	}}
}

func TestNumberHandler_List(t *testing.T) {
	h, _ := setupNumberHandler(t, seededNumbers())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/numbers", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var numbers []domain.NumberMapping
	decodeBody(t, w, &numbers)
	assert.Len(t, numbers, 2)
	assert.Equal(t, "+15550002", numbers[1].PhoneNumber)
}

func TestNumberHandler_Create(t *testing.T) {
	t.Run("creates mapping from multipart form", func(t *testing.T) {
		h, env := setupNumberHandler(t, &fakeCallingBackend{})

		req := multipartRequest(t, http.MethodPost, "/numbers",
			map[string]string{"phone_number": " +15550009 ", "text_content": "Welcome"},
			"greeting.mp3", []byte("ID3"))
		w := httptest.NewRecorder()
		h.Create(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var created domain.NumberMapping
		decodeBody(t, w, &created)
		assert.Equal(t, "+15550009", created.PhoneNumber)
		assert.Equal(t, "https://cdn/greeting.mp3", created.AudioURL)

		require.Len(t, env.backend.added, 1)
		assert.Equal(t, []byte("ID3"), env.backend.added[0].Audio.Data)
		assert.Len(t, env.registry.Numbers(), 1)
	})

	t.Run("missing field is rejected before the backend", func(t *testing.T) {
		h, env := setupNumberHandler(t, &fakeCallingBackend{})

		req := multipartRequest(t, http.MethodPost, "/numbers",
			map[string]string{"phone_number": "+15550009", "text_content": ""},
			"greeting.mp3", []byte("ID3"))
		w := httptest.NewRecorder()
		h.Create(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var apiErr domain.APIError
		decodeBody(t, w, &apiErr)
		assert.Equal(t, "Missing Fields", apiErr.Title)
		assert.Equal(t, "Please fill in all required fields.", apiErr.Detail)
		assert.Empty(t, env.backend.added)

		toasts := env.feed.Drain()
		require.Len(t, toasts, 1)
		assert.Equal(t, domain.NotificationError, toasts[0].Level)
	})

	t.Run("missing audio file is rejected", func(t *testing.T) {
		h, env := setupNumberHandler(t, &fakeCallingBackend{})

		req := multipartRequest(t, http.MethodPost, "/numbers",
			map[string]string{"phone_number": "+15550009", "text_content": "Welcome"}, "", nil)
		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, env.backend.added)
	})

	t.Run("backend message is surfaced", func(t *testing.T) {
		fake := &fakeCallingBackend{addErr: &backend.Error{Op: "add number", Kind: backend.KindApplication, Message: "Number already exists"}}
		h, _ := setupNumberHandler(t, fake)

		req := multipartRequest(t, http.MethodPost, "/numbers",
			map[string]string{"phone_number": "+15550009", "text_content": "Welcome"},
			"greeting.mp3", []byte("ID3"))
		w := httptest.NewRecorder()
		h.Create(w, req)

		require.Equal(t, http.StatusBadGateway, w.Code)
		var apiErr domain.APIError
		decodeBody(t, w, &apiErr)
		assert.Equal(t, "Number already exists", apiErr.Detail)
	})

	t.Run("not multipart", func(t *testing.T) {
		h, _ := setupNumberHandler(t, &fakeCallingBackend{})

		w := httptest.NewRecorder()
		h.Create(w, jsonRequest(t, http.MethodPost, "/numbers", map[string]string{"phone_number": "x"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upload over limit", func(t *testing.T) {
		h, env := setupNumberHandler(t, &fakeCallingBackend{})

		req := multipartRequest(t, http.MethodPost, "/numbers",
			map[string]string{"phone_number": "+15550009", "text_content": "Welcome"},
			"huge.wav", bytes.Repeat([]byte{1}, 2<<20))
		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Empty(t, env.backend.added)
	})
}

func TestNumberHandler_DuplicateAndDrafts(t *testing.T) {
	h, env := setupNumberHandler(t, seededNumbers())
	_, err := env.registry.List(context.Background())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Duplicate(w, withChiContext(httptest.NewRequest(http.MethodPost, "/numbers/2/duplicate", nil), map[string]string{"id": "2"}))
	require.Equal(t, http.StatusCreated, w.Code)

	var draft domain.NumberDraft
	decodeBody(t, w, &draft)
	assert.Empty(t, draft.Mapping.PhoneNumber)
	assert.Equal(t, "Hi", draft.Mapping.TextContent)
	assert.Equal(t, int64(2), draft.TemplateID)

	w = httptest.NewRecorder()
	h.ListDrafts(w, httptest.NewRequest(http.MethodGet, "/numbers/drafts", nil))
	var drafts []domain.NumberDraft
	decodeBody(t, w, &drafts)
	require.Len(t, drafts, 1)

	w = httptest.NewRecorder()
	h.DiscardDraft(w, withChiContext(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"key": draft.Key}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.DiscardDraft(w, withChiContext(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"key": draft.Key}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.Duplicate(w, withChiContext(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": "99"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNumberHandler_UpdateText(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		body   interface{}
		status int
	}{
		{name: "valid", id: "1", body: domain.UpdateTextRequest{TextContent: "Updated"}, status: http.StatusOK},
		{name: "blank text", id: "1", body: domain.UpdateTextRequest{TextContent: "  "}, status: http.StatusBadRequest},
		{name: "invalid id", id: "abc", body: domain.UpdateTextRequest{TextContent: "Updated"}, status: http.StatusBadRequest},
		{name: "zero id", id: "0", body: domain.UpdateTextRequest{TextContent: "Updated"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupNumberHandler(t, seededNumbers())

			req := withChiContext(jsonRequest(t, http.MethodPut, "/numbers/"+tt.id+"/text", tt.body), map[string]string{"id": tt.id})
			w := httptest.NewRecorder()
			h.UpdateText(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestNumberHandler_UpdateAudio(t *testing.T) {
	h, _ := setupNumberHandler(t, seededNumbers())

	req := multipartRequest(t, http.MethodPut, "/numbers/1/audio", nil, "new.wav", []byte("RIFF"))
	w := httptest.NewRecorder()
	h.UpdateAudio(w, withChiContext(req, map[string]string{"id": "1"}))

	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.NumberMapping
	decodeBody(t, w, &updated)
	assert.Equal(t, "https://cdn/new.wav", updated.AudioURL)

	req = multipartRequest(t, http.MethodPut, "/numbers/1/audio", nil, "", nil)
	w = httptest.NewRecorder()
	h.UpdateAudio(w, withChiContext(req, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNumberHandler_Delete(t *testing.T) {
	h, env := setupNumberHandler(t, seededNumbers())

	w := httptest.NewRecorder()
	h.Delete(w, withChiContext(httptest.NewRequest(http.MethodDelete, "/numbers/1", nil), map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.backend.deleted)

	w = httptest.NewRecorder()
	h.Delete(w, withChiContext(httptest.NewRequest(http.MethodDelete, "/numbers/1?confirm=true", nil), map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{1}, env.backend.deleted)
}

func TestNumberHandler_ConfigureWebhook(t *testing.T) {
	h, env := setupNumberHandler(t, seededNumbers())
	_, err := env.registry.List(context.Background())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ConfigureWebhook(w, withChiContext(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": "2"}))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"+15550002"}, env.backend.webhooks)

	w = httptest.NewRecorder()
	h.ConfigureWebhook(w, withChiContext(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": "42"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
