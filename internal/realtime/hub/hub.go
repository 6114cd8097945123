package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"ride-realtime/internal/domain/user"
	"ride-realtime/internal/general/contracts"
	"ride-realtime/internal/general/logger"

	"github.com/go-playground/validator/v10"
)

// Conn is the transport-side view of one connection. Enqueue hands a frame
// to the connection's outbound queue and reports whether it was accepted;
// false means the queue is full or closed and the frame is dropped for that
// connection only. Acceptance says "dispatched to transport", never
// "delivered"; the protocol is fire-and-forget.
type Conn interface {
	ID() string
	Enqueue(frame []byte) bool
}

// Stats is the health-endpoint view of hub state.
type Stats struct {
	ActiveConnections int    `json:"active_connections"`
	ActiveDrivers     int    `json:"active_drivers"`
	DroppedEvents     uint64 `json:"dropped_events"`
}

// Hub routes the three event families (location updates, ride lifecycle
// notifications, chat/broadcast) between producers and consumers by room
// membership only. All state it owns is the injected registry and location
// table plus the attached connection set; handlers validate each payload at
// the boundary and swallow malformed events locally.
type Hub struct {
	logger    *logger.Logger
	validate  *validator.Validate
	registry  *ConnectionRegistry
	rooms     *RoomIndex
	locations *LocationTable

	mu    sync.RWMutex
	conns map[string]Conn

	dropped atomic.Uint64

	staleAfter time.Duration
	reapEvery  time.Duration
	now        func() time.Time
}

// Option tunes hub timing; used by the service config and by tests.
type Option func(*Hub)

// WithStaleAfter sets the location staleness threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(h *Hub) { h.staleAfter = d }
}

// WithReapEvery sets the reaper period.
func WithReapEvery(d time.Duration) Option {
	return func(h *Hub) { h.reapEvery = d }
}

// New wires a hub around the injected state objects.
func New(log *logger.Logger, registry *ConnectionRegistry, rooms *RoomIndex, locations *LocationTable, opts ...Option) *Hub {
	h := &Hub{
		logger:     log,
		validate:   validator.New(),
		registry:   registry,
		rooms:      rooms,
		locations:  locations,
		conns:      make(map[string]Conn),
		staleAfter: 5 * time.Minute,
		reapEvery:  60 * time.Second,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach registers a transport connection with the hub.
func (h *Hub) Attach(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Detach removes a connection and cleans up everything derived from it:
// room memberships, registered identity, and (for drivers) the live
// location record. Admins are told when a driver goes away.
func (h *Hub) Detach(ctx context.Context, connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()

	h.rooms.LeaveAll(connID)

	id, ok := h.registry.Remove(connID)
	if !ok {
		return
	}

	h.logger.Info(ctx, "connection_detached", "Connection identity removed",
		map[string]any{"user_id": id.UserID, "role": id.Role.String()})

	if id.Role.IsDriver() {
		h.locations.Remove(id.UserID)
		h.emitToRoom(ctx, RoomAdmin, contracts.EventDriverDisconnected, contracts.DriverDisconnected{
			DriverID:  id.UserID,
			Timestamp: h.now(),
		})
	}
}

// HandleEvent routes one inbound envelope from a connection. Validation
// failures are dropped and logged; nothing is ever returned to the sender.
func (h *Hub) HandleEvent(ctx context.Context, connID string, env contracts.Envelope) {
	switch env.Type {
	case contracts.EventJoinRoom:
		h.handleJoinRoom(ctx, connID, env.Data)
	case contracts.EventLocationUpdate:
		h.handleLocationUpdate(ctx, connID, env.Data)
	case contracts.EventJoinRideTracking:
		h.handleJoinRideTracking(ctx, connID, env.Data)
	case contracts.EventRideAssigned:
		h.handleRideAssigned(ctx, env.Data)
	case contracts.EventApprovalRequest:
		h.handleApprovalRequest(ctx, env.Data)
	case contracts.EventPMApprovalRequest:
		h.handlePMApprovalRequest(ctx, env.Data)
	case contracts.EventRideStatusUpdate:
		h.handleRideStatusUpdate(ctx, env.Data)
	case contracts.EventEmergencyAlert:
		h.handleEmergencyAlert(ctx, env.Data)
	case contracts.EventChatMessage:
		h.handleChatMessage(ctx, env.Data)
	case contracts.EventBulkLocationUpdate:
		h.handleBulkLocationUpdate(ctx, env.Data)
	case contracts.EventHeartbeat:
		h.emitToConn(ctx, connID, contracts.EventHeartbeatAck, contracts.HeartbeatAck{Timestamp: h.now()})
	default:
		h.logger.Debug(ctx, "unknown_event_dropped", "Dropped event of unknown type",
			map[string]any{"type": env.Type})
	}
}

// Run drives the staleness reaper until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.reapEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := h.locations.Reap(h.staleAfter); len(evicted) > 0 {
				h.logger.Debug(ctx, "stale_locations_reaped", "Evicted stale driver location records",
					map[string]any{"driver_ids": evicted, "stale_after": h.staleAfter.String()})
			}
		}
	}
}

// Snapshot returns the current live location records.
func (h *Hub) Snapshot() []LocationRecord {
	return h.locations.Snapshot()
}

// Stats returns counters for the health endpoint.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	conns := len(h.conns)
	h.mu.RUnlock()

	return Stats{
		ActiveConnections: conns,
		ActiveDrivers:     h.locations.Count(),
		DroppedEvents:     h.dropped.Load(),
	}
}

// ----- inbound handlers -----

func (h *Hub) handleJoinRoom(ctx context.Context, connID string, data json.RawMessage) {
	var in contracts.JoinRoom
	if !h.decode(ctx, contracts.EventJoinRoom, data, &in) {
		return
	}
	role, err := user.ParseRole(in.Role)
	if err != nil {
		h.logger.Error(ctx, "join_room_rejected", "Unknown role in join_room", err,
			map[string]any{"role": in.Role, "user_id": in.UserID})
		return
	}

	// Rejoining replaces the identity; leave the previous identity room so a
	// role or user change cannot leak stale memberships.
	if prev, ok := h.registry.Get(connID); ok {
		h.rooms.Leave(connID, IdentityRoom(prev.Role, prev.UserID))
		if prev.Role.IsAdmin() && !role.IsAdmin() {
			h.rooms.Leave(connID, RoomAdmin)
		}
	}

	h.registry.Put(Identity{ConnID: connID, UserID: in.UserID, Role: role})
	h.rooms.Join(connID, IdentityRoom(role, in.UserID))
	if role.IsAdmin() {
		h.rooms.Join(connID, RoomAdmin)
	}

	h.logger.Info(ctx, "room_joined", "Connection joined its identity room",
		map[string]any{"user_id": in.UserID, "role": role.String()})
}

func (h *Hub) handleLocationUpdate(ctx context.Context, connID string, data json.RawMessage) {
	var in contracts.LocationUpdate
	if !h.decode(ctx, contracts.EventLocationUpdate, data, &in) {
		return
	}

	rec := h.locations.Upsert(LocationRecord{
		DriverID:     in.DriverID,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		RideID:       in.RideID,
		DailyRouteID: in.DailyRouteID,
	})

	if in.RideID != "" {
		h.emitToRoom(ctx, RideRoom(in.RideID), contracts.EventLocationUpdated, contracts.LocationUpdated{
			DriverID:  rec.DriverID,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Timestamp: rec.Timestamp,
		})
	}

	h.emitToRoom(ctx, RoomAdmin, contracts.EventDriverLocationUpdated, contracts.DriverLocationUpdated{
		DriverID:     rec.DriverID,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		RideID:       rec.RideID,
		DailyRouteID: rec.DailyRouteID,
	})
}

func (h *Hub) handleJoinRideTracking(ctx context.Context, connID string, data json.RawMessage) {
	var rideID string
	if err := json.Unmarshal(data, &rideID); err != nil || rideID == "" {
		h.logger.Error(ctx, "event_rejected", "join_ride_tracking payload must be a non-empty ride ID string", err, nil)
		return
	}
	h.rooms.Join(connID, RideRoom(rideID))
	h.logger.Debug(ctx, "ride_tracking_joined", "Connection subscribed to ride room",
		map[string]any{"ride_id": rideID})
}

func (h *Hub) handleRideAssigned(ctx context.Context, data json.RawMessage) {
	var in contracts.RideAssigned
	if !h.decode(ctx, contracts.EventRideAssigned, data, &in) {
		return
	}
	h.emitToRoom(ctx, IdentityRoom(user.RoleDriver, in.DriverID), contracts.EventRideAssignment, contracts.RideAssignment{
		RideID:    in.RideID,
		Message:   in.Message,
		Timestamp: h.now(),
	})
}

func (h *Hub) handleApprovalRequest(ctx context.Context, data json.RawMessage) {
	var in contracts.ApprovalRequest
	if !h.decode(ctx, contracts.EventApprovalRequest, data, &in) {
		return
	}
	h.emitToRoom(ctx, IdentityRoom(user.RoleDepartmentHead, in.DepartmentHeadID),
		contracts.EventApprovalRequestReceived, contracts.ApprovalRequestReceived{
			RideID:    in.RideID,
			Message:   in.Message,
			Timestamp: h.now(),
		})
}

func (h *Hub) handlePMApprovalRequest(ctx context.Context, data json.RawMessage) {
	var in contracts.PMApprovalRequest
	if !h.decode(ctx, contracts.EventPMApprovalRequest, data, &in) {
		return
	}
	h.emitToRoom(ctx, IdentityRoom(user.RoleProjectManager, in.ProjectManagerID),
		contracts.EventPMApprovalReceived, contracts.PMApprovalReceived{
			RideID:    in.RideID,
			Message:   in.Message,
			Timestamp: h.now(),
		})
}

func (h *Hub) handleRideStatusUpdate(ctx context.Context, data json.RawMessage) {
	var in contracts.RideStatusUpdate
	if !h.decode(ctx, contracts.EventRideStatusUpdate, data, &in) {
		return
	}
	h.emitToRoom(ctx, RideRoom(in.RideID), contracts.EventRideStatusChanged, contracts.RideStatusChanged{
		RideID:    in.RideID,
		Status:    in.Status,
		Location:  in.Location,
		Message:   in.Message,
		Timestamp: h.now(),
	})
}

func (h *Hub) handleEmergencyAlert(ctx context.Context, data json.RawMessage) {
	var in contracts.EmergencyAlert
	if !h.decode(ctx, contracts.EventEmergencyAlert, data, &in) {
		return
	}
	h.emitToRoom(ctx, RoomAdmin, contracts.EventEmergencyAlertReceived, contracts.EmergencyAlertReceived{
		DriverID:  in.DriverID,
		Location:  in.Location,
		Message:   in.Message,
		Timestamp: h.now(),
	})
	h.logger.Info(ctx, "emergency_alert_routed", "Emergency alert forwarded to admins",
		map[string]any{"driver_id": in.DriverID})
}

func (h *Hub) handleChatMessage(ctx context.Context, data json.RawMessage) {
	var in contracts.ChatMessage
	if !h.decode(ctx, contracts.EventChatMessage, data, &in) {
		return
	}
	h.emitToRoom(ctx, RideRoom(in.RideID), contracts.EventChatMessageReceived, contracts.ChatMessageReceived{
		RideID:     in.RideID,
		SenderID:   in.SenderID,
		Message:    in.Message,
		SenderRole: in.SenderRole,
		Timestamp:  h.now(),
	})
}

func (h *Hub) handleBulkLocationUpdate(ctx context.Context, data json.RawMessage) {
	var in contracts.BulkLocationUpdate
	if !h.decode(ctx, contracts.EventBulkLocationUpdate, data, &in) {
		return
	}

	accepted := make([]contracts.DriverLocationUpdated, 0, len(in.Locations))
	for _, loc := range in.Locations {
		rec := h.locations.Upsert(LocationRecord{
			DriverID:     loc.DriverID,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			RideID:       loc.RideID,
			DailyRouteID: loc.DailyRouteID,
		})
		accepted = append(accepted, contracts.DriverLocationUpdated{
			DriverID:     rec.DriverID,
			Latitude:     rec.Latitude,
			Longitude:    rec.Longitude,
			RideID:       rec.RideID,
			DailyRouteID: rec.DailyRouteID,
		})
	}

	h.emitToRoom(ctx, RoomAdmin, contracts.EventBulkLocationsUpdated, contracts.BulkLocationsUpdated{
		Locations: accepted,
		Count:     len(accepted),
		Timestamp: h.now(),
	})
}

// ----- emit helpers -----

// decode unmarshals and validates an inbound payload. A failure drops the
// event locally; the hub never lets one connection's bad input reach others.
func (h *Hub) decode(ctx context.Context, event string, data json.RawMessage, out any) bool {
	if err := json.Unmarshal(data, out); err != nil {
		h.logger.Error(ctx, "event_rejected", "Malformed payload dropped",
			err, map[string]any{"event": event})
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		h.logger.Error(ctx, "event_rejected", "Payload failed schema validation",
			err, map[string]any{"event": event})
		return false
	}
	return true
}

// emitToRoom fans one event out to every member of a room. Encoding happens
// once; a full or closed per-connection queue drops the frame for that
// connection only.
func (h *Hub) emitToRoom(ctx context.Context, room, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error(ctx, "emit_encode_failed", "Failed to encode outbound event", err,
			map[string]any{"event": event, "room": room})
		return
	}

	for _, connID := range h.rooms.Members(room) {
		h.mu.RLock()
		c, ok := h.conns[connID]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		if !c.Enqueue(frame) {
			h.dropped.Add(1)
			h.logger.Debug(ctx, "event_dropped_slow_consumer", "Outbound queue full, frame dropped",
				map[string]any{"event": event, "room": room, "conn_id": connID})
		}
	}
}

// emitToConn writes one event to a single connection's queue.
func (h *Hub) emitToConn(ctx context.Context, connID, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error(ctx, "emit_encode_failed", "Failed to encode outbound event", err,
			map[string]any{"event": event, "conn_id": connID})
		return
	}

	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.Enqueue(frame) {
		h.dropped.Add(1)
	}
}

// encodeFrame wraps a payload in the wire envelope.
func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contracts.Envelope{Type: event, Data: data})
}
