package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"ride-realtime/internal/domain/user"
	"ride-realtime/internal/general/jwt"
	"ride-realtime/internal/general/logger"
	"ride-realtime/internal/realtime/hub"

	"github.com/gorilla/mux"
)

// RealtimeHTTPHandler serves the hub's request/response surface: the admin
// location snapshot and the health check. The WebSocket endpoint is mounted
// by the service entrypoint, outside this router.
type RealtimeHTTPHandler struct {
	hub    *hub.Hub
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewRealtimeHTTPHandler wires the handler around the hub.
func NewRealtimeHTTPHandler(h *hub.Hub, log *logger.Logger, auth *jwt.Manager) *RealtimeHTTPHandler {
	return &RealtimeHTTPHandler{hub: h, logger: log, auth: auth}
}

// RegisterRoutes mounts the realtime endpoints on the provided router.
func (handler *RealtimeHTTPHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/locations",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)(handler.handleLocations),
	).Methods(http.MethodGet)
	r.HandleFunc("/health", handler.handleHealth).Methods(http.MethodGet)
}

// ----- general helpers -----

// jsonResponse encodes data to the HTTP response, controlling status on
// encode failure.
func (handler *RealtimeHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *RealtimeHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
