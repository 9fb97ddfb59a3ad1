package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/immich-mcp/pkg/config"
)

func testConfig(immichURL string) *config.Config {
	return &config.Config{
		ListenAddr:         "127.0.0.1:0",
		Transport:          config.TransportHTTP,
		ImmichURL:          immichURL,
		ImmichAPIKey:       "test-key",
		DeviceID:           config.DefaultDeviceID,
		AuthMode:           config.AuthModeNone,
		CacheTTLSeconds:    300,
		RateLimitPerSecond: 100,
		RateLimitBurst:     200,
		RequestTimeout:     30 * time.Second,
		ImmichTimeout:      time.Second,
	}
}

func newFakeImmich(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()

	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy && r.URL.Path == "/api/server/ping" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"res":"pong"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(fake.Close)
	return fake
}

func TestNewServer(t *testing.T) {
	srv, err := New(testConfig("http://localhost:2283"))
	require.NoError(t, err)
	assert.NotNil(t, srv.mcpServer)
	assert.NotNil(t, srv.immich)
	assert.NotNil(t, srv.cache)
	assert.NotNil(t, srv.rateLimiter)
	assert.NotNil(t, srv.authProvider)
	assert.Len(t, srv.Adapters(), 4)
	assert.Equal(t, 5*time.Minute, srv.cache.TTL())
}

func TestNewServerRejectsBadAuthMode(t *testing.T) {
	cfg := testConfig("http://localhost:2283")
	cfg.AuthMode = config.AuthModeAPIKey

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServerHealthCheck(t *testing.T) {
	srv, err := New(testConfig("http://localhost:2283"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestServerReadyCheck(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		wantStatus int
		wantBody   string
	}{
		{name: "immich reachable", healthy: true, wantStatus: http.StatusOK, wantBody: `"ready"`},
		{name: "immich down", healthy: false, wantStatus: http.StatusServiceUnavailable, wantBody: "immich_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeImmich(t, tt.healthy)
			srv, err := New(testConfig(fake.URL))
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			srv.handleReady(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig("http://localhost:2283")
	cfg.AuthMode = config.AuthModeAPIKey
	cfg.APIKeys = []string{"client-key"}

	srv, err := New(cfg)
	require.NoError(t, err)

	handler := srv.Handler()

	// Health stays open
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig("http://localhost:2283")
	cfg.RateLimitPerSecond = 1 // Very low for testing
	cfg.RateLimitBurst = 1

	srv, err := New(cfg)
	require.NoError(t, err)

	handler := srv.rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First request should succeed
	req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// Second immediate request should be rate limited
	req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	// Wait for rate limiter to reset
	time.Sleep(1100 * time.Millisecond)

	// Third request should succeed
	req3 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestToolsListedOverMCP(t *testing.T) {
	srv, err := New(testConfig("http://localhost:2283"))
	require.NoError(t, err)

	response := srv.mcpServer.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	body, err := json.Marshal(response)
	require.NoError(t, err)

	for _, name := range []string{"listAlbums", "checkAssetsInAlbum", "uploadAssets", "smartSearch", "clearCache"} {
		assert.Contains(t, string(body), `"`+name+`"`)
	}
}

func TestStreamableHTTPInitialize(t *testing.T) {
	srv, err := New(testConfig("http://localhost:2283"))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	result, ok := decoded["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, serverName, result["serverInfo"].(map[string]interface{})["name"])
}

func TestStartStopServer(t *testing.T) {
	srv, err := New(testConfig("http://localhost:2283"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Stop server
	cancel()

	// Wait for server to stop
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop in time")
	}
}
