package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	ws "github.com/krshsl/mumble/backend/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mumble Journal API is running", decodeBody(t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", body["database"])
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitOrigins(" http://a, ,http://b "))
	assert.Nil(t, splitOrigins(""))
}

func TestCheckOrigin(t *testing.T) {
	const allowed = "http://localhost:3000, https://mumble.example.com"

	tests := []struct {
		name    string
		allowed string
		origin  string
		want    bool
	}{
		{"listed origin", allowed, "http://localhost:3000", true},
		{"second listed origin", allowed, "https://mumble.example.com", true},
		{"scheme mismatch", allowed, "http://mumble.example.com", false},
		{"port mismatch", allowed, "http://localhost:8080", false},
		{"foreign origin", allowed, "https://evil.example.com", false},
		{"empty list denies all", "", "http://localhost:3000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
			req.Header.Set("Origin", tt.origin)
			assert.Equal(t, tt.want, CheckOrigin(req, tt.allowed))
		})
	}
}

func TestWebSocketReadLimitFollowsUploadCap(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Uploads.MaxBytes = 25 * 1024 * 1024
	})

	assert.Equal(t, ws.MessageSizeFor(25*1024*1024), env.server.wsHub.MaxMessageSize())
	assert.Greater(t, env.server.wsHub.MaxMessageSize(), int64(32*1024*1024))
}
