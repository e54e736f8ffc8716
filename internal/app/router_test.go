package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lakesync.dev/lakesync/internal/api/handlers"
	"lakesync.dev/lakesync/internal/api/middleware"
	"lakesync.dev/lakesync/internal/config"
	"lakesync.dev/lakesync/internal/reconcile"
	"lakesync.dev/lakesync/internal/usecase"
)

func TestBuildCORSConfig_DefaultsToAllowlistWhenOriginsEmpty(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        nil,
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: false,
		},
	}

	got := buildCORSConfig(cfg)
	if got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want false", got.AllowAllOrigins)
	}
	if !got.AllowCredentials {
		t.Fatalf("AllowCredentials = %v, want true", got.AllowCredentials)
	}
	if len(got.AllowOrigins) != 2 {
		t.Fatalf("len(AllowOrigins) = %d, want 2", len(got.AllowOrigins))
	}
}

func TestBuildCORSConfig_StripsWildcardUnlessUnsafeFlagEnabled(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        []string{"*", "https://example.com"},
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: false,
		},
	}

	got := buildCORSConfig(cfg)
	if got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want false", got.AllowAllOrigins)
	}
	if len(got.AllowOrigins) != 1 || got.AllowOrigins[0] != "https://example.com" {
		t.Fatalf("AllowOrigins = %#v, want []string{\"https://example.com\"}", got.AllowOrigins)
	}
}

func TestBuildCORSConfig_UnsafeAllowAllDisablesCredentials(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        []string{"*"},
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: true,
		},
	}

	got := buildCORSConfig(cfg)
	if !got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want true", got.AllowAllOrigins)
	}
	if got.AllowCredentials {
		t.Fatalf("AllowCredentials = %v, want false", got.AllowCredentials)
	}
	if len(got.AllowOrigins) != 0 {
		t.Fatalf("AllowOrigins = %#v, want empty", got.AllowOrigins)
	}
}

type stubSync struct{ calls int }

func (s *stubSync) Execute(context.Context, usecase.SyncRequestersInput) (*usecase.SyncRequestersOutput, error) {
	s.calls++
	return &usecase.SyncRequestersOutput{RunID: uuid.New(), Result: &reconcile.Result{Errors: []string{}}}, nil
}

func newTestAppRouter(t *testing.T, keys []string) (*gin.Engine, *stubSync) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sync := &stubSync{}
	server := handlers.NewServer(handlers.ServerDeps{Sync: sync})
	cfg := &config.Config{Server: config.ServerConfig{AllowCredentials: true}}
	return newRouter(cfg, server, middleware.NewJWTConfig(keys, "lakesync")), sync
}

func serve(router *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	router, _ := newTestAppRouter(t, []string{"router-key-123456789012345678901234"})

	if w := serve(router, http.MethodGet, "/api/v1/health/live", ""); w.Code != http.StatusOK {
		t.Fatalf("live status = %d, want 200", w.Code)
	}
	w := serve(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("metrics body does not look like prometheus exposition")
	}
	if got := w.Header().Get(middleware.RequestIDHeader); got == "" {
		t.Fatal("request id header missing")
	}
}

func TestRouter_TriggerRequiresTokenWhenKeysConfigured(t *testing.T) {
	key := "router-key-123456789012345678901234"
	router, sync := newTestAppRouter(t, []string{key})

	if w := serve(router, http.MethodPost, "/api/v1/sync/requesters", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}
	if w := serve(router, http.MethodGet, "/log/level", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("log level status without token = %d, want 401", w.Code)
	}
	if sync.calls != 0 {
		t.Fatalf("sync ran without a token")
	}

	token, _, err := middleware.GenerateToken(middleware.JWTConfig{
		SigningKey: []byte(key),
		Issuer:     "lakesync",
		ExpiresIn:  time.Hour,
	}, "ops")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if w := serve(router, http.MethodPost, "/api/v1/sync/requesters", token); w.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200 body=%s", w.Code, w.Body.String())
	}
	if sync.calls != 1 {
		t.Fatalf("sync calls = %d, want 1", sync.calls)
	}
	if w := serve(router, http.MethodGet, "/log/level", token); w.Code != http.StatusOK {
		t.Fatalf("log level status = %d, want 200", w.Code)
	}
}

func TestRouter_TriggerOpenWithoutKeys(t *testing.T) {
	router, sync := newTestAppRouter(t, nil)

	if w := serve(router, http.MethodPost, "/api/v1/sync/requesters", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if sync.calls != 1 {
		t.Fatalf("sync calls = %d, want 1", sync.calls)
	}
}
