package api

import (
	"database/sql"
	"net/http"

	"github.com/sharecycle/sharecycle/internal/store"
)

// StatisticsHandler serves the public platform counters and the health check.
type StatisticsHandler struct {
	DB *sql.DB
}

// Get handles GET /api/statistics.
func (h *StatisticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetStatistics(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to compute statistics")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Donations handles GET /api/donations/statistics.
func (h *StatisticsHandler) Donations(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetDonationStatistics(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to compute donation statistics")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Health handles GET /healthz.
func (h *StatisticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		writeError(w, r, err, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
