package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/middleware"
	"go.uber.org/zap"
)

func corsRequest(t *testing.T, cfg *config.CORSConfig, environment, origin string) *httptest.ResponseRecorder {
	t.Helper()
	h := middleware.CORS(cfg, environment, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/console/numbers", nil)
	req.Header.Set("Origin", origin)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	base := config.CORSConfig{
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}

	tests := []struct {
		name        string
		origins     []string
		environment string
		origin      string
		allowed     bool
	}{
		{name: "explicit origin allowed", origins: []string{"https://console.example.com"}, environment: "production", origin: "https://console.example.com", allowed: true},
		{name: "explicit origin rejected", origins: []string{"https://console.example.com"}, environment: "production", origin: "https://evil.example.com", allowed: false},
		{name: "wildcard reflects origin", origins: []string{"*"}, environment: "production", origin: "https://any.example.com", allowed: true},
		{name: "development allows all by default", environment: "development", origin: "http://localhost:5173", allowed: true},
		{name: "production denies all by default", environment: "production", origin: "http://localhost:5173", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.AllowedOrigins = tt.origins

			w := corsRequest(t, &cfg, tt.environment, tt.origin)

			if tt.allowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
