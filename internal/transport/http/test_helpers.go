package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LHYWilliam/roomchat/internal/auth"
	"github.com/LHYWilliam/roomchat/internal/config"
	"github.com/LHYWilliam/roomchat/internal/core"
	"github.com/LHYWilliam/roomchat/internal/store/sqlite"
)

// testEnv bundles a running server with direct handles on its registry and
// auth service so tests can seed state without going through HTTP.
type testEnv struct {
	ts   *httptest.Server
	reg  *core.Registry
	auth *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = "test-secret"

	logger := zerolog.Nop()
	reg := core.NewRegistry(cfg.Chat.SendBuffer)
	router := core.NewRouter(reg, &logger, cfg.Chat.EchoSelf)
	server := NewServer(reg, router, authService, &cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, reg: reg, auth: authService}
}

// token registers a credential for the user and returns a valid JWT.
func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()

	token, err := e.auth.Register(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("register credentials for %s: %v", username, err)
	}
	return token
}

// doJSON performs an authenticated request and returns status and body.
func doJSON(t *testing.T, method, url, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}
