package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"ride-realtime/internal/domain/user"
	"ride-realtime/internal/general/contracts"
	"ride-realtime/internal/general/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn captures frames the hub routes to one connection.
type fakeConn struct {
	id   string
	full bool // simulate a saturated outbound queue

	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Enqueue(frame []byte) bool {
	if f.full {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeConn) events(t *testing.T) []contracts.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]contracts.Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env contracts.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

// lastEvent decodes the newest frame of the given type into out and reports
// whether one was found.
func (f *fakeConn) lastEvent(t *testing.T, event string, out any) bool {
	t.Helper()
	evs := f.events(t)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == event {
			require.NoError(t, json.Unmarshal(evs[i].Data, out))
			return true
		}
	}
	return false
}

func newTestHub() *Hub {
	return New(logger.New("hub-test"), NewConnectionRegistry(), NewRoomIndex(), NewLocationTable())
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func join(t *testing.T, h *Hub, c *fakeConn, userID string, role user.Role) {
	t.Helper()
	h.Attach(c)
	h.HandleEvent(context.Background(), c.ID(), contracts.Envelope{
		Type: contracts.EventJoinRoom,
		Data: raw(t, contracts.JoinRoom{UserID: userID, Role: role.String()}),
	})
}

func track(t *testing.T, h *Hub, c *fakeConn, rideID string) {
	t.Helper()
	h.HandleEvent(context.Background(), c.ID(), contracts.Envelope{
		Type: contracts.EventJoinRideTracking,
		Data: raw(t, rideID),
	})
}

func TestLocationUpdateRouting(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	driver := &fakeConn{id: "c-driver"}
	admin := &fakeConn{id: "c-admin"}
	trackerR1 := &fakeConn{id: "c-r1"}
	trackerR2 := &fakeConn{id: "c-r2"}

	join(t, h, driver, "D1", user.RoleDriver)
	join(t, h, admin, "A1", user.RoleAdmin)
	join(t, h, trackerR1, "P1", user.RoleEmployee)
	join(t, h, trackerR2, "P2", user.RoleEmployee)
	track(t, h, trackerR1, "R1")
	track(t, h, trackerR2, "R2")

	h.HandleEvent(ctx, driver.ID(), contracts.Envelope{
		Type: contracts.EventLocationUpdate,
		Data: raw(t, contracts.LocationUpdate{DriverID: "D1", Latitude: 6.93, Longitude: 79.86, RideID: "R1"}),
	})

	var reduced contracts.LocationUpdated
	require.True(t, trackerR1.lastEvent(t, contracts.EventLocationUpdated, &reduced))
	assert.Equal(t, "D1", reduced.DriverID)
	assert.Equal(t, 6.93, reduced.Latitude)
	assert.Equal(t, 79.86, reduced.Longitude)
	assert.False(t, reduced.Timestamp.IsZero())

	var full contracts.DriverLocationUpdated
	require.True(t, admin.lastEvent(t, contracts.EventDriverLocationUpdated, &full))
	assert.Equal(t, "D1", full.DriverID)
	assert.Equal(t, "R1", full.RideID)

	// room isolation: the R2 tracker sees nothing
	assert.Empty(t, trackerR2.events(t))
}

func TestLocationUpdateWithoutRideGoesToAdminOnly(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	driver := &fakeConn{id: "c-driver"}
	admin := &fakeConn{id: "c-admin"}
	join(t, h, driver, "D1", user.RoleDriver)
	join(t, h, admin, "A1", user.RoleAdmin)

	h.HandleEvent(ctx, driver.ID(), contracts.Envelope{
		Type: contracts.EventLocationUpdate,
		Data: raw(t, contracts.LocationUpdate{DriverID: "D1", Latitude: 1, Longitude: 2}),
	})

	var full contracts.DriverLocationUpdated
	require.True(t, admin.lastEvent(t, contracts.EventDriverLocationUpdated, &full))
	assert.Empty(t, full.RideID)

	rec, ok := h.locations.Get("D1")
	require.True(t, ok)
	assert.Equal(t, 1.0, rec.Latitude)
}

func TestRideAssignedReachesOnlyThatDriver(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	d1 := &fakeConn{id: "c-d1"}
	d2 := &fakeConn{id: "c-d2"}
	join(t, h, d1, "D1", user.RoleDriver)
	join(t, h, d2, "D2", user.RoleDriver)

	h.HandleEvent(ctx, "c-admin", contracts.Envelope{
		Type: contracts.EventRideAssigned,
		Data: raw(t, contracts.RideAssigned{DriverID: "D1", RideID: "R1", Message: "Go"}),
	})

	var assignment contracts.RideAssignment
	require.True(t, d1.lastEvent(t, contracts.EventRideAssignment, &assignment))
	assert.Equal(t, "R1", assignment.RideID)
	assert.Equal(t, "Go", assignment.Message)
	assert.False(t, assignment.Timestamp.IsZero())

	assert.Empty(t, d2.events(t))
}

func TestApprovalRouting(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	head := &fakeConn{id: "c-head"}
	pm := &fakeConn{id: "c-pm"}
	join(t, h, head, "H1", user.RoleDepartmentHead)
	join(t, h, pm, "M1", user.RoleProjectManager)

	h.HandleEvent(ctx, "c-x", contracts.Envelope{
		Type: contracts.EventApprovalRequest,
		Data: raw(t, contracts.ApprovalRequest{DepartmentHeadID: "H1", RideID: "R1", Message: "approve?"}),
	})
	h.HandleEvent(ctx, "c-x", contracts.Envelope{
		Type: contracts.EventPMApprovalRequest,
		Data: raw(t, contracts.PMApprovalRequest{ProjectManagerID: "M1", RideID: "R2", Message: "approve too?"}),
	})

	var ar contracts.ApprovalRequestReceived
	require.True(t, head.lastEvent(t, contracts.EventApprovalRequestReceived, &ar))
	assert.Equal(t, "R1", ar.RideID)
	assert.False(t, head.lastEvent(t, contracts.EventPMApprovalReceived, &contracts.PMApprovalReceived{}))

	var pmr contracts.PMApprovalReceived
	require.True(t, pm.lastEvent(t, contracts.EventPMApprovalReceived, &pmr))
	assert.Equal(t, "R2", pmr.RideID)
}

func TestRideStatusAndChatStayInRideRoom(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	inRide := &fakeConn{id: "c-in"}
	outside := &fakeConn{id: "c-out"}
	join(t, h, inRide, "P1", user.RoleEmployee)
	join(t, h, outside, "P2", user.RoleEmployee)
	track(t, h, inRide, "R1")
	track(t, h, outside, "R2")

	h.HandleEvent(ctx, "c-x", contracts.Envelope{
		Type: contracts.EventRideStatusUpdate,
		Data: raw(t, contracts.RideStatusUpdate{RideID: "R1", Status: "started"}),
	})
	h.HandleEvent(ctx, "c-x", contracts.Envelope{
		Type: contracts.EventChatMessage,
		Data: raw(t, contracts.ChatMessage{RideID: "R1", SenderID: "P1", Message: "hi", SenderRole: "employee"}),
	})

	var status contracts.RideStatusChanged
	require.True(t, inRide.lastEvent(t, contracts.EventRideStatusChanged, &status))
	assert.Equal(t, "started", status.Status)

	var chat contracts.ChatMessageReceived
	require.True(t, inRide.lastEvent(t, contracts.EventChatMessageReceived, &chat))
	assert.Equal(t, "hi", chat.Message)
	assert.Equal(t, "employee", chat.SenderRole)

	assert.Empty(t, outside.events(t))
}

func TestEmergencyAlertReachesAdmins(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	admin := &fakeConn{id: "c-admin"}
	bystander := &fakeConn{id: "c-by"}
	join(t, h, admin, "A1", user.RoleAdmin)
	join(t, h, bystander, "P1", user.RoleEmployee)

	h.HandleEvent(ctx, "c-d", contracts.Envelope{
		Type: contracts.EventEmergencyAlert,
		Data: raw(t, contracts.EmergencyAlert{
			DriverID: "D1",
			Location: contracts.GeoPoint{Latitude: 6.93, Longitude: 79.86},
			Message:  "accident",
		}),
	})

	var alert contracts.EmergencyAlertReceived
	require.True(t, admin.lastEvent(t, contracts.EventEmergencyAlertReceived, &alert))
	assert.Equal(t, "D1", alert.DriverID)
	assert.Equal(t, "accident", alert.Message)

	assert.Empty(t, bystander.events(t))
}

func TestBulkLocationUpdate(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	admin := &fakeConn{id: "c-admin"}
	join(t, h, admin, "A1", user.RoleAdmin)

	h.HandleEvent(ctx, "c-fleet", contracts.Envelope{
		Type: contracts.EventBulkLocationUpdate,
		Data: raw(t, contracts.BulkLocationUpdate{Locations: []contracts.LocationUpdate{
			{DriverID: "D1", Latitude: 1, Longitude: 1},
			{DriverID: "D2", Latitude: 2, Longitude: 2, RideID: "R2"},
		}}),
	})

	var bulk contracts.BulkLocationsUpdated
	require.True(t, admin.lastEvent(t, contracts.EventBulkLocationsUpdated, &bulk))
	assert.Equal(t, 2, bulk.Count)
	assert.Len(t, bulk.Locations, 2)

	assert.Equal(t, 2, h.locations.Count())
	rec, ok := h.locations.Get("D2")
	require.True(t, ok)
	assert.Equal(t, "R2", rec.RideID)
}

func TestHeartbeatAnswersSameConnectionOnly(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	caller := &fakeConn{id: "c-1"}
	other := &fakeConn{id: "c-2"}
	join(t, h, caller, "U1", user.RoleEmployee)
	join(t, h, other, "U2", user.RoleEmployee)

	h.HandleEvent(ctx, caller.ID(), contracts.Envelope{Type: contracts.EventHeartbeat})

	var ack contracts.HeartbeatAck
	require.True(t, caller.lastEvent(t, contracts.EventHeartbeatAck, &ack))
	assert.False(t, ack.Timestamp.IsZero())
	assert.Empty(t, other.events(t))
}

func TestMalformedPayloadsAreDropped(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	admin := &fakeConn{id: "c-admin"}
	join(t, h, admin, "A1", user.RoleAdmin)

	cases := []contracts.Envelope{
		{Type: contracts.EventLocationUpdate, Data: json.RawMessage(`{"latitude": "not a number"}`)},
		{Type: contracts.EventLocationUpdate, Data: raw(t, contracts.LocationUpdate{Latitude: 7, Longitude: 80})}, // missing driverId
		{Type: contracts.EventLocationUpdate, Data: raw(t, contracts.LocationUpdate{DriverID: "D1", Latitude: 200, Longitude: 80})},
		{Type: contracts.EventRideAssigned, Data: json.RawMessage(`not json`)},
		{Type: contracts.EventJoinRoom, Data: raw(t, contracts.JoinRoom{UserID: "U1", Role: "superuser"})},
		{Type: contracts.EventJoinRideTracking, Data: json.RawMessage(`42`)},
		{Type: "made_up_event", Data: json.RawMessage(`{}`)},
	}
	for _, env := range cases {
		h.HandleEvent(ctx, "c-bad", env)
	}

	// nothing was routed anywhere and no state leaked in
	assert.Empty(t, admin.events(t))
	assert.Equal(t, 0, h.locations.Count())
	_, ok := h.registry.Get("c-bad")
	assert.False(t, ok)
}

func TestJoinRoomRejoinReplacesIdentityRoom(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	c := &fakeConn{id: "c-1"}
	join(t, h, c, "U1", user.RoleEmployee)
	require.True(t, h.rooms.InRoom("c-1", "employee_U1"))

	// same connection re-joins as a department head
	h.HandleEvent(ctx, c.ID(), contracts.Envelope{
		Type: contracts.EventJoinRoom,
		Data: raw(t, contracts.JoinRoom{UserID: "U1", Role: "department_head"}),
	})

	assert.False(t, h.rooms.InRoom("c-1", "employee_U1"))
	assert.True(t, h.rooms.InRoom("c-1", "department_head_U1"))

	id, ok := h.registry.Get("c-1")
	require.True(t, ok)
	assert.Equal(t, user.RoleDepartmentHead, id.Role)
}

func TestDriverDisconnectCleansUpAndNotifiesAdmins(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	driver := &fakeConn{id: "c-driver"}
	admin := &fakeConn{id: "c-admin"}
	join(t, h, driver, "D1", user.RoleDriver)
	join(t, h, admin, "A1", user.RoleAdmin)
	track(t, h, driver, "R1")

	h.HandleEvent(ctx, driver.ID(), contracts.Envelope{
		Type: contracts.EventLocationUpdate,
		Data: raw(t, contracts.LocationUpdate{DriverID: "D1", Latitude: 6.93, Longitude: 79.86}),
	})
	require.Equal(t, 1, h.locations.Count())

	h.Detach(ctx, driver.ID())

	var gone contracts.DriverDisconnected
	require.True(t, admin.lastEvent(t, contracts.EventDriverDisconnected, &gone))
	assert.Equal(t, "D1", gone.DriverID)
	assert.False(t, gone.Timestamp.IsZero())

	assert.Equal(t, 0, h.locations.Count())
	assert.Empty(t, h.rooms.Rooms(driver.ID()))
	_, ok := h.registry.Get(driver.ID())
	assert.False(t, ok)
}

func TestNonDriverDisconnectIsSilent(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	emp := &fakeConn{id: "c-emp"}
	admin := &fakeConn{id: "c-admin"}
	join(t, h, emp, "U1", user.RoleEmployee)
	join(t, h, admin, "A1", user.RoleAdmin)

	h.Detach(ctx, emp.ID())

	assert.Empty(t, admin.events(t))
}

func TestSlowConsumerDropsAreCountedAndIsolated(t *testing.T) {
	ctx := context.Background()
	h := newTestHub()

	saturated := &fakeConn{id: "c-slow", full: true}
	healthy := &fakeConn{id: "c-ok"}
	join(t, h, saturated, "A1", user.RoleAdmin)
	join(t, h, healthy, "A2", user.RoleAdmin)

	h.HandleEvent(ctx, "c-d", contracts.Envelope{
		Type: contracts.EventLocationUpdate,
		Data: raw(t, contracts.LocationUpdate{DriverID: "D1", Latitude: 1, Longitude: 1}),
	})

	// the healthy admin still got the event; the drop was counted
	var full contracts.DriverLocationUpdated
	require.True(t, healthy.lastEvent(t, contracts.EventDriverLocationUpdated, &full))
	assert.Equal(t, uint64(1), h.Stats().DroppedEvents)
}

func TestStats(t *testing.T) {
	h := newTestHub()

	join(t, h, &fakeConn{id: "c-1"}, "U1", user.RoleEmployee)
	join(t, h, &fakeConn{id: "c-2"}, "D1", user.RoleDriver)
	h.HandleEvent(context.Background(), "c-2", contracts.Envelope{
		Type: contracts.EventLocationUpdate,
		Data: raw(t, contracts.LocationUpdate{DriverID: "D1", Latitude: 1, Longitude: 1}),
	})

	stats := h.Stats()
	assert.Equal(t, 2, stats.ActiveConnections)
	assert.Equal(t, 1, stats.ActiveDrivers)
}
