package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ride-realtime/internal/domain/user"
	"ride-realtime/internal/general/contracts"
	"ride-realtime/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	dialTimeout   = 10 * time.Second
	writeTimeout  = 5 * time.Second
	reconnectWait = 3 * time.Second
)

var ErrNotConnected = errors.New("transport: not connected")

// Handler receives the raw data of one inbound event. Typed registration
// wrappers decode into the event's schema before invoking the callback.
type Handler func(data json.RawMessage)

// Client owns exactly one logical connection to the realtime hub. Emits are
// fire-and-forget: a nil error means the frame was dispatched to the
// transport, never that it was delivered. Connection loss triggers automatic
// reconnection; on success the client re-joins its identity room and every
// ride-tracking room it had joined.
type Client struct {
	endpoint string
	logger   *logger.Logger
	dialer   *websocket.Dialer

	mu      sync.Mutex // guards sock, identity, tracked, cancel
	sock    *websocket.Conn
	userID  string
	role    user.Role
	tracked map[string]bool
	cancel  context.CancelFunc

	writeMu sync.Mutex // serializes socket writes

	hmu      sync.RWMutex
	handlers map[string][]Handler

	state   atomic.Int32
	onState atomic.Value // func(ConnState)

	retryWait time.Duration
}

// NewClient creates a transport client for the given ws:// endpoint.
func NewClient(endpoint string, log *logger.Logger) *Client {
	return &Client{
		endpoint:  endpoint,
		logger:    log,
		dialer:    &websocket.Dialer{HandshakeTimeout: dialTimeout},
		tracked:   make(map[string]bool),
		handlers:  make(map[string][]Handler),
		retryWait: reconnectWait,
	}
}

// Connect opens the connection and joins the identity room. Idempotent: a
// second call as the same user keeps the existing connection; a different
// user tears the old connection down first, so at most one live connection
// exists per user.
func (c *Client) Connect(ctx context.Context, userID string, role user.Role) error {
	if !role.Valid() {
		return fmt.Errorf("transport: %w: %s", user.ErrInvalidRole, role)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sock != nil && c.userID == userID && c.State() == StateConnected {
		return nil
	}
	c.teardownLocked()

	c.setState(StateConnecting)
	sock, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("transport: dial %s: %w", c.endpoint, err)
	}

	c.sock = sock
	c.userID = userID
	c.role = role

	if err := c.writeFrame(sock, contracts.EventJoinRoom, contracts.JoinRoom{
		UserID: userID,
		Role:   role.String(),
	}); err != nil {
		_ = sock.Close()
		c.sock = nil
		c.setState(StateDisconnected)
		return fmt.Errorf("transport: join_room: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.readLoop(runCtx, sock)

	c.setState(StateConnected)
	return nil
}

// Disconnect tears down the connection and clears identity and tracked
// rooms. Safe to call when already disconnected, any number of times.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.userID = ""
	c.role = ""
	c.tracked = make(map[string]bool)
	c.setState(StateDisconnected)
}

// teardownLocked cancels the read loop and closes the socket. Caller holds mu.
func (c *Client) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// OnStateChange registers a callback invoked on every state transition.
func (c *Client) OnStateChange(fn func(ConnState)) {
	c.onState.Store(fn)
}

func (c *Client) setState(s ConnState) {
	if ConnState(c.state.Swap(int32(s))) == s {
		return
	}
	if fn, ok := c.onState.Load().(func(ConnState)); ok && fn != nil {
		fn(s)
	}
}

// ----- outbound -----

// emit dispatches one event to the transport.
func (c *Client) emit(event string, payload any) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}
	return c.writeFrame(sock, event, payload)
}

func (c *Client) writeFrame(sock *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(contracts.Envelope{Type: event, Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = sock.SetWriteDeadline(time.Now().Add(writeTimeout))
	return sock.WriteMessage(websocket.TextMessage, frame)
}

// UpdateLocation forwards a driver location sample to the hub.
func (c *Client) UpdateLocation(loc contracts.LocationUpdate) error {
	return c.emit(contracts.EventLocationUpdate, loc)
}

// JoinRideTracking subscribes this connection to a ride's tracking room. The
// room is re-joined automatically after a reconnect.
func (c *Client) JoinRideTracking(rideID string) error {
	c.mu.Lock()
	c.tracked[rideID] = true
	c.mu.Unlock()
	return c.emit(contracts.EventJoinRideTracking, rideID)
}

// SendRideAssignment notifies a driver about an assigned ride.
func (c *Client) SendRideAssignment(driverID, rideID, message string) error {
	return c.emit(contracts.EventRideAssigned, contracts.RideAssigned{
		DriverID: driverID,
		RideID:   rideID,
		Message:  message,
	})
}

// SendApprovalRequest routes an approval request to a department head.
func (c *Client) SendApprovalRequest(departmentHeadID, rideID, message string) error {
	return c.emit(contracts.EventApprovalRequest, contracts.ApprovalRequest{
		DepartmentHeadID: departmentHeadID,
		RideID:           rideID,
		Message:          message,
	})
}

// SendPMApprovalRequest routes an approval request to a project manager.
func (c *Client) SendPMApprovalRequest(projectManagerID, rideID, message string) error {
	return c.emit(contracts.EventPMApprovalRequest, contracts.PMApprovalRequest{
		ProjectManagerID: projectManagerID,
		RideID:           rideID,
		Message:          message,
	})
}

// SendRideStatusUpdate announces a ride status transition to its trackers.
func (c *Client) SendRideStatusUpdate(update contracts.RideStatusUpdate) error {
	return c.emit(contracts.EventRideStatusUpdate, update)
}

// SendEmergencyAlert raises a safety-critical alert to admins.
func (c *Client) SendEmergencyAlert(driverID string, location contracts.GeoPoint, message string) error {
	return c.emit(contracts.EventEmergencyAlert, contracts.EmergencyAlert{
		DriverID: driverID,
		Location: location,
		Message:  message,
	})
}

// SendChatMessage relays a chat line to the ride room.
func (c *Client) SendChatMessage(msg contracts.ChatMessage) error {
	return c.emit(contracts.EventChatMessage, msg)
}

// SendBulkLocationUpdate forwards many location samples in one frame.
func (c *Client) SendBulkLocationUpdate(locations []contracts.LocationUpdate) error {
	return c.emit(contracts.EventBulkLocationUpdate, contracts.BulkLocationUpdate{Locations: locations})
}

// Heartbeat asks the hub for a heartbeat_ack on this connection.
func (c *Client) Heartbeat() error {
	return c.emit(contracts.EventHeartbeat, struct{}{})
}

// ----- inbound -----

// on registers a raw handler for an event type. Registration adds; it never
// replaces earlier callbacks.
func (c *Client) on(event string, h Handler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// RemoveAllListeners drops every registered callback. Call on component
// teardown to avoid double registration across lifecycles.
func (c *Client) RemoveAllListeners() {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers = make(map[string][]Handler)
}

func (c *Client) dispatch(ctx context.Context, frame []byte) {
	var env contracts.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Error(ctx, "inbound_frame_invalid", "Dropped inbound frame with invalid envelope", err, nil)
		return
	}

	c.hmu.RLock()
	hs := make([]Handler, len(c.handlers[env.Type]))
	copy(hs, c.handlers[env.Type])
	c.hmu.RUnlock()

	for _, h := range hs {
		h(env.Data)
	}
}

// readLoop pumps inbound frames until the context is canceled. On transport
// failure it reconnects with a fixed backoff and resubscribes.
func (c *Client) readLoop(ctx context.Context, sock *websocket.Conn) {
	for {
		_, frame, err := sock.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Info(ctx, "transport_connection_lost", "Connection lost, reconnecting",
				map[string]any{"error": err.Error()})
			sock = c.reconnect(ctx)
			if sock == nil {
				return
			}
			continue
		}
		c.dispatch(ctx, frame)
	}
}

// reconnect dials until it succeeds or the context is canceled, then
// re-joins the identity room and all tracked ride rooms. Returns the new
// socket, or nil when the client was deliberately disconnected.
func (c *Client) reconnect(ctx context.Context) *websocket.Conn {
	c.setState(StateConnecting)

	for {
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return nil
		case <-time.After(c.retryWait):
		}

		sock, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
		if err != nil {
			c.logger.Error(ctx, "transport_reconnect_failed", "Redial failed, will retry", err,
				map[string]any{"endpoint": c.endpoint, "retry_in": c.retryWait.String()})
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			_ = sock.Close()
			c.setState(StateDisconnected)
			return nil
		}
		c.sock = sock
		userID, role := c.userID, c.role
		rides := make([]string, 0, len(c.tracked))
		for rideID := range c.tracked {
			rides = append(rides, rideID)
		}
		c.mu.Unlock()

		_ = c.writeFrame(sock, contracts.EventJoinRoom, contracts.JoinRoom{UserID: userID, Role: role.String()})
		for _, rideID := range rides {
			_ = c.writeFrame(sock, contracts.EventJoinRideTracking, rideID)
		}

		c.setState(StateConnected)
		c.logger.Info(ctx, "transport_reconnected", "Connection re-established, rooms re-joined",
			map[string]any{"tracked_rides": len(rides)})
		return sock
	}
}
