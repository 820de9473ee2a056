package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"netrasarthi-media/internal/catalog"
	"netrasarthi-media/internal/cloudinary"
	"netrasarthi-media/internal/events"
	"netrasarthi-media/internal/observability/logging"
)

// MaxVideos caps a listing; pagination is not offered.
const MaxVideos = 50

const publishTimeout = 5 * time.Second

type listVideosResponse struct {
	Success bool                `json:"success"`
	Videos  []catalog.AssetView `json:"videos"`
}

type deleteVideoResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// ListVideos returns the 50 most recent videos, newest first.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	logger := h.logger(r.Context())
	logger.Info("fetching videos from cloudinary")

	// A client hanging up must not abort the upstream call half way.
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()
	result, err := h.Assets.Search(ctx, cloudinary.VideoQuery(MaxVideos))
	h.metrics().ObserveUpstream("search", err, time.Since(start))
	if err != nil {
		logger.Error("cloudinary search failed", upstreamErrorAttrs(err)...)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	videos := catalog.Normalize(result.Resources)
	h.metrics().SetAssetsListed(len(videos))
	logger.Info("videos listed", "count", len(videos))
	writeJSON(w, http.StatusOK, listVideosResponse{Success: true, Videos: videos})
}

// DeleteVideo destroys the video named by the wildcard path segment and
// mirrors the media host's answer. Slashes in the identifier may arrive
// either as extra path segments or escaped as %2F.
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	publicID := publicIDParam(r)
	ctx := logging.ContextWithPublicID(context.WithoutCancel(r.Context()), publicID)
	logger := h.logger(ctx)
	logger.Info("deleting video")

	start := time.Now()
	result, err := h.Assets.Destroy(ctx, publicID, cloudinary.ResourceTypeVideo)
	h.metrics().ObserveUpstream("destroy", err, time.Since(start))
	if err != nil {
		logger.Error("cloudinary destroy failed", upstreamErrorAttrs(err)...)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("video deleted", "result", string(result))

	h.publishDeleted(ctx, publicID, result)
	writeJSON(w, http.StatusOK, deleteVideoResponse{Success: true, Result: json.RawMessage(result)})
}

func (h *Handler) publishDeleted(ctx context.Context, publicID string, result cloudinary.DestroyResult) {
	if h.Events == nil {
		return
	}
	event := events.NewAssetDeleted(publicID, cloudinary.ResourceTypeVideo, json.RawMessage(result), h.now())
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err := h.Events.Publish(ctx, event)
	h.metrics().ObserveEvent(string(event.Type), err)
	if err != nil {
		h.logger(ctx).Warn("asset event publish failed", "event_id", event.ID, "error", err)
	}
}

// publicIDParam reads the wildcard segment. chi matches against the raw path
// when the request carried escapes, so those are decoded here.
func publicIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return raw
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func upstreamErrorAttrs(err error) []any {
	attrs := []any{"error", err}
	var apiErr *cloudinary.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		attrs = append(attrs, "upstream_status", apiErr.StatusCode)
	}
	return attrs
}
