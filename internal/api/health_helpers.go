package api

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 5 * time.Second

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services []componentStatus `json:"services"`
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overallStatus := "ok"
	statusCode := http.StatusOK
	recordComponent := func(component string, err error) componentStatus {
		status := "ok"
		message := ""
		if err != nil {
			status = "degraded"
			message = err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		return componentStatus{Component: component, Status: status, Error: message}
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	components := make([]componentStatus, 0, 2)
	if h.Assets != nil {
		components = append(components, recordComponent("cloudinary", h.Assets.Ping(ctx)))
	}
	if h.Events != nil {
		components = append(components, recordComponent("events", h.Events.Ping(ctx)))
	}
	return components, overallStatus, statusCode
}

// Health reports the reachability of the media host and the events queue.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	components, status, code := h.componentHealth(r.Context())
	for _, component := range components {
		if component.Error != "" {
			h.logger(r.Context()).Warn("health check degraded", "component", component.Component, "error", component.Error)
		}
	}
	writeJSON(w, code, healthResponse{Status: status, Services: components})
}
