package handler

import (
	"encoding/json"
	"net/http"
)

// ----- Handler: GET /health -----

// handleHealth reports liveness plus the hub's connection and driver counts.
func (handler *RealtimeHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	stats := handler.hub.Stats()

	type resp struct {
		Status            string `json:"status"`
		ActiveConnections int    `json:"active_connections"`
		ActiveDrivers     int    `json:"active_drivers"`
		DroppedEvents     uint64 `json:"dropped_events"`
	}
	_ = json.NewEncoder(w).Encode(resp{
		Status:            "ok",
		ActiveConnections: stats.ActiveConnections,
		ActiveDrivers:     stats.ActiveDrivers,
		DroppedEvents:     stats.DroppedEvents,
	})
}
