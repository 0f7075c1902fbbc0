package api

import (
	"net/http"
	"time"

	"github.com/okian/lapprice/internal/domain/types"
)

// StatsProvider reports service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// OpsHandler serves the liveness and stats endpoints.
type OpsHandler struct {
	stats   StatsProvider
	started time.Time
}

// NewOpsHandler creates the operational handler. started anchors the
// reported uptime.
func NewOpsHandler(stats StatsProvider, started time.Time) *OpsHandler {
	return &OpsHandler{stats: stats, started: started}
}

// HandleHealth answers GET /health. It does not touch the model store, so
// it stays green while no model is published.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Message: "Laptop Price Predictor API is running",
	})
}

// HandleStats answers GET /stats with the service counters and uptime.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := h.stats.GetStats()
	out["uptimeSeconds"] = int(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}
