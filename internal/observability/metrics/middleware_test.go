package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMiddlewareUsesRouteLabel(t *testing.T) {
	recorder := New()
	route := func(*http.Request) string { return "/api/cloudinary/videos/*" }
	handler := HTTPMiddleware(recorder, route, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/cloudinary/videos/abc123", nil))

	got := testutil.ToFloat64(recorder.requests.WithLabelValues("DELETE", "/api/cloudinary/videos/*", "418"))
	if got != 1 {
		t.Fatalf("expected one labelled request, got %v", got)
	}
}

func TestHTTPMiddlewareFallsBackToNormalizedPath(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, nil, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/widgets/abc123", nil))

	got := testutil.ToFloat64(recorder.requests.WithLabelValues("GET", "/widgets/:id", "200"))
	if got != 1 {
		t.Fatalf("expected normalized path label, got %v", got)
	}
}

func TestResponseRecorderKeepsFirstStatus(t *testing.T) {
	rr := NewResponseRecorder(httptest.NewRecorder())
	rr.WriteHeader(http.StatusNotFound)
	rr.WriteHeader(http.StatusOK)
	if rr.Status() != http.StatusNotFound {
		t.Fatalf("expected first status to stick, got %d", rr.Status())
	}
}

func TestNormalizePath(t *testing.T) {
	testCases := map[string]string{
		"":                    "/",
		"/":                   "/",
		"/users/123":          "/users/:id",
		"/users/abc123def/":   "/users/:id",
		"streams/abc/456/ext": "/streams/abc/:id/ext",
	}
	for input, expected := range testCases {
		if got := normalizePath(input); got != expected {
			t.Fatalf("normalizePath(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestUpstreamAndEventMetrics(t *testing.T) {
	recorder := New()
	recorder.ObserveUpstream("Search", nil, 20*time.Millisecond)
	recorder.ObserveUpstream("destroy", errors.New("boom"), time.Millisecond)
	recorder.ObserveEvent("asset.deleted", nil)
	recorder.SetAssetsListed(7)

	if got := testutil.ToFloat64(recorder.upstreamRequests.WithLabelValues("search", "success")); got != 1 {
		t.Fatalf("expected search success count 1, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.upstreamRequests.WithLabelValues("destroy", "error")); got != 1 {
		t.Fatalf("expected destroy error count 1, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.events.WithLabelValues("asset.deleted", "success")); got != 1 {
		t.Fatalf("expected published event count 1, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.assetsListed); got != 7 {
		t.Fatalf("expected assets listed gauge 7, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/test", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	expected := `netrasarthi_media_http_requests_total{method="GET",route="/api/test",status="200"} 1`
	if !strings.Contains(rec.Body.String(), expected) {
		t.Fatalf("expected exposition to contain %q, got %q", expected, rec.Body.String())
	}
}

func TestSetDefault(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	replacement := New()
	SetDefault(replacement)
	if Default() != replacement {
		t.Fatal("expected SetDefault to replace the default recorder")
	}
	SetDefault(nil)
	if Default() != replacement {
		t.Fatal("expected nil to be ignored")
	}
}
