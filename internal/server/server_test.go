package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"netrasarthi-media/internal/api"
	"netrasarthi-media/internal/cloudinary"
	"netrasarthi-media/internal/observability/metrics"
)

type stubAssets struct {
	resources []cloudinary.Asset
	destroyed []string
	err       error
}

func (s *stubAssets) Search(context.Context, cloudinary.SearchQuery) (*cloudinary.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &cloudinary.SearchResult{Resources: s.resources}, nil
}

func (s *stubAssets) Destroy(_ context.Context, publicID, _ string) (cloudinary.DestroyResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.destroyed = append(s.destroyed, publicID)
	return cloudinary.DestroyResult(`{"result":"ok"}`), nil
}

func (s *stubAssets) Ping(context.Context) error {
	return s.err
}

func newTestHandler(t *testing.T) (*api.Handler, *stubAssets) {
	t.Helper()
	assets := &stubAssets{}
	handler := api.NewHandler(assets, api.ServiceInfo{Name: "netrasarthi-media", Version: "test", Environment: "test"})
	handler.Metrics = metrics.New()
	return handler, assets
}

func newTestServer(t *testing.T, cfg Config) (*Server, *stubAssets, *metrics.Recorder) {
	t.Helper()
	handler, assets := newTestHandler(t)
	if cfg.Metrics == nil {
		cfg.Metrics = handler.Metrics
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return srv, assets, cfg.Metrics
}

func TestNewReturnsErrorWhenHandlerNil(t *testing.T) {
	t.Parallel()

	srv, err := New(nil, Config{})
	if err == nil {
		t.Fatalf("expected error when handler is nil, got server: %#v", srv)
	}
}

func TestNewRejectsInvalidOrigins(t *testing.T) {
	handler, _ := newTestHandler(t)
	if _, err := New(handler, Config{CORS: CORSConfig{AllowedOrigins: []string{"not-an-origin"}}}); err == nil {
		t.Fatal("expected invalid origin to be rejected")
	}
}

func TestServerRoutes(t *testing.T) {
	srv, assets, _ := newTestServer(t, Config{})

	testCases := []struct {
		method string
		path   string
		status int
	}{
		{method: http.MethodGet, path: "/", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/test", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/cloudinary/videos", status: http.StatusOK},
		{method: http.MethodDelete, path: "/api/cloudinary/videos/folder/clip", status: http.StatusOK},
		{method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{method: http.MethodPut, path: "/api/cloudinary/videos", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
	}
	for _, tc := range testCases {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.status, rec.Code, rec.Body.String())
		}
	}
	if len(assets.destroyed) != 1 || assets.destroyed[0] != "folder/clip" {
		t.Fatalf("expected nested public id to be forwarded, got %v", assets.destroyed)
	}
}

func TestServerNotFoundUsesErrorEnvelope(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missing", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["success"] != false || payload["error"] == "" {
		t.Fatalf("unexpected not found payload: %v", payload)
	}
}

func TestServerRecordsRoutePatternMetrics(t *testing.T) {
	srv, _, recorder := newTestServer(t, Config{})

	for _, path := range []string{"/api/cloudinary/videos/abc", "/api/cloudinary/videos/def"} {
		srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, path, nil))
	}

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	expected := `netrasarthi_media_http_requests_total{method="DELETE",route="/api/cloudinary/videos/*",status="200"} 2`
	if !strings.Contains(rec.Body.String(), expected) {
		t.Fatalf("expected %q in exposition, got %s", expected, rec.Body.String())
	}
}

func TestServerLogsRequestsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	srv, _, _ := newTestServer(t, Config{Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get("X-Request-Id"))
	}
	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry["msg"] == "request completed" {
			found = true
			if entry["request_id"] != "req-42" || entry["component"] != "http" {
				t.Fatalf("unexpected request log entry: %v", entry)
			}
		}
	}
	if !found {
		t.Fatalf("expected a request log line, got %q", buf.String())
	}
}

func TestServerUpstreamFailureEnvelope(t *testing.T) {
	srv, assets, _ := newTestServer(t, Config{})
	assets.err = errors.New("Invalid Signature")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cloudinary/videos/abc123", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"Invalid Signature"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestServerRecoversFromPanics(t *testing.T) {
	handler, _ := newTestHandler(t)
	handler.Assets = nil
	srv, err := New(handler, Config{Addr: "127.0.0.1:0", Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cloudinary/videos", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected recovered panic to answer 500, got %d", rec.Code)
	}
}
