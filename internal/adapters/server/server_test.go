package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/vettrack/internal/adapters/server/common"
)

// newTestDeps wires a real adapter with only the parser configured.
func newTestDeps(t *testing.T) Dependencies {
	t.Helper()
	adapter, err := common.NewAppServiceAdapter(common.AppServiceConfig{})
	if err != nil {
		t.Fatalf("NewAppServiceAdapter() error = %v", err)
	}
	return Dependencies{Paths: adapter, Reports: adapter, Vetting: adapter}
}

// TestNewHandlerRoutes verifies health, metrics and API mounting.
func TestNewHandlerRoutes(t *testing.T) {
	deps := newTestDeps(t)
	deps.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("vettrack_up 1\n"))
	})
	handler, cfg, err := NewHandler(Config{APIEndpoint: "api/v1/"}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	cases := []struct {
		target     string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/readyz", http.StatusOK, `"ok"`},
		{"/metrics", http.StatusOK, "vettrack_up"},
		{"/api/v1/completion?done=1&total=2", http.StatusOK, `"percent":50`},
		{"/api/v1/paths/parse?path=%2F%2Fldml%2Fnumbers", http.StatusOK, `"canonical":"//ldml/numbers"`},
		{"/api/v1/reports?user=u1&locale=fr", http.StatusNotImplemented, "not_implemented"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if rec.Code != tc.wantStatus {
			t.Fatalf("%s status = %d, want %d", tc.target, rec.Code, tc.wantStatus)
		}
		if !strings.Contains(rec.Body.String(), tc.wantBody) {
			t.Fatalf("%s body = %q, want %q", tc.target, rec.Body.String(), tc.wantBody)
		}
	}
}

// TestNewHandlerReadinessAndLogging verifies failed readiness and request logging.
func TestNewHandlerReadinessAndLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := charmLog.NewWithOptions(&logs, charmLog.Options{Level: charmLog.DebugLevel})
	deps := newTestDeps(t)
	deps.Logger = logger
	deps.Ready = func(context.Context) error { return errors.New("db closed") }

	handler, _, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if got := logs.String(); !strings.Contains(got, "/readyz") || !strings.Contains(got, "503") {
		t.Fatalf("expected request log line, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unmounted metrics status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// TestNormalizeConfigRejectsCollisions verifies endpoint collision checks.
func TestNormalizeConfigRejectsCollisions(t *testing.T) {
	if _, err := normalizeConfig(Config{APIEndpoint: "/mcp"}); err == nil {
		t.Fatal("expected api/mcp collision error")
	}
	if _, err := normalizeConfig(Config{MetricsEndpoint: "/api/v1"}); err == nil {
		t.Fatal("expected metrics collision error")
	}
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected missing path service error")
	}
}

// TestRunStopsOnCancel verifies graceful shutdown when the context is canceled.
func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, newTestDeps(t)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
