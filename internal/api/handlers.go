package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"netrasarthi-media/internal/cloudinary"
	"netrasarthi-media/internal/events"
	"netrasarthi-media/internal/observability/logging"
	"netrasarthi-media/internal/observability/metrics"
)

// AssetService is the subset of the media host client used by the handlers.
type AssetService interface {
	Search(ctx context.Context, query cloudinary.SearchQuery) (*cloudinary.SearchResult, error)
	Destroy(ctx context.Context, publicID, resourceType string) (cloudinary.DestroyResult, error)
	Ping(ctx context.Context) error
}

// ServiceInfo describes the running service on the root endpoint.
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

type Handler struct {
	Assets  AssetService
	Events  events.Queue
	Metrics *metrics.Recorder
	Info    ServiceInfo
	Logger  *slog.Logger
	Now     func() time.Time
}

func NewHandler(assets AssetService, info ServiceInfo) *Handler {
	return &Handler{Assets: assets, Info: info}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) metrics() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

func (h *Handler) logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.Logger)
}

type rootResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

// Root identifies the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Name:        h.Info.Name,
		Version:     h.Info.Version,
		Status:      "running",
		Environment: h.Info.Environment,
	})
}

// timestampLayout matches JavaScript's Date.prototype.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type testResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Cloudinary string `json:"cloudinary"`
	Timestamp  string `json:"timestamp"`
}

// Test is a liveness check for the frontend. It does not contact the media
// host.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	h.logger(r.Context()).Debug("test endpoint hit")
	writeJSON(w, http.StatusOK, testResponse{
		Success:    true,
		Message:    "Server is running!",
		Cloudinary: "Connected",
		Timestamp:  h.now().UTC().Format(timestampLayout),
	})
}
