package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/tradegate-go/internal/infra/buildinfo"
)

// handleRoot handles GET /.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"name":    "TradeGate",
		"version": buildinfo.Version,
	})
}

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
