package handler

import (
	"net/http"
	"time"

	"ride-realtime/internal/realtime/hub"
)

// ----- Handler: GET /api/v1/locations -----

// handleLocations returns the snapshot of live driver locations. Consumers
// use it on cold start or reconnect, before live events arrive.
func (handler *RealtimeHTTPHandler) handleLocations(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	type resp struct {
		Locations []hub.LocationRecord `json:"locations"`
		Count     int                  `json:"count"`
		FetchedAt time.Time            `json:"fetched_at"`
	}

	snapshot := handler.hub.Snapshot()
	handler.jsonResponse(ctx, w, http.StatusOK, resp{
		Locations: snapshot,
		Count:     len(snapshot),
		FetchedAt: time.Now().UTC(),
	})
}
