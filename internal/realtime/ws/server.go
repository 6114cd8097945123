package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"ride-realtime/internal/general/contracts"
	"ride-realtime/internal/general/logger"
	"ride-realtime/internal/realtime/hub"

	"github.com/gorilla/websocket"
)

const readDeadline = 60 * time.Second

// Server upgrades HTTP requests to WebSocket connections and pumps inbound
// envelopes into the hub. Identity is whatever the client presents in
// join_room; the upgrade itself is unauthenticated.
type Server struct {
	logger       *logger.Logger
	hub          *hub.Hub
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewServer wires the transport server around a hub.
func NewServer(log *logger.Logger, h *hub.Hub, pingInterval time.Duration) *Server {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Server{
		logger:       log,
		hub:          h,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS is the single realtime endpoint. It owns the connection
// lifecycle: attach on upgrade, read loop, detach and close on exit.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	conn := newConn(sock)
	ctx := s.logger.WithConnID(r.Context(), conn.ID())

	sock.SetReadLimit(1 << 20) // 1 MiB
	_ = sock.SetReadDeadline(time.Now().Add(readDeadline))
	sock.SetPongHandler(func(_ string) error {
		return sock.SetReadDeadline(time.Now().Add(readDeadline))
	})

	s.hub.Attach(conn)
	go conn.writePump(s.pingInterval)

	s.logger.Info(ctx, "ws_connected", "WebSocket connection established", nil)

	// Teardown order (LIFO on return): detach from the hub first so no new
	// frames are routed here, then close the socket.
	defer conn.Close()
	defer s.hub.Detach(ctx, conn.ID())

	for {
		_ = sock.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Error(ctx, "ws_unexpected_close", "Connection closed unexpectedly", err, nil)
			} else {
				s.logger.Info(ctx, "ws_connection_closed", "Connection closed", nil)
			}
			return
		}

		var env contracts.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			// Fire-and-forget protocol: malformed frames are dropped and
			// logged, nothing goes back to the sender.
			s.logger.Error(ctx, "ws_bad_frame", "Dropped frame with invalid JSON envelope", err, nil)
			continue
		}

		s.hub.HandleEvent(ctx, conn.ID(), env)
	}
}
