package http

import (
	"net/http"
	"time"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// HealthHandler reports liveness.
type HealthHandler struct {
	Environment string
	Now         func() time.Time
}

// Health always answers 200 with the current time and environment name.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Timestamp:   now().UTC().Format(time.RFC3339),
		Environment: h.Environment,
	})
}
