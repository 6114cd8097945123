package client

import (
	"context"
	"encoding/json"

	"ride-realtime/internal/general/contracts"
)

// Typed listener registration. Each wrapper decodes the event's schema and
// drops (with a log line) payloads that fail to decode, so callbacks only
// ever see well-formed data. Each call adds a callback; see
// RemoveAllListeners for lifecycle cleanup.

func (c *Client) OnLocationUpdate(fn func(contracts.LocationUpdated)) {
	on(c, contracts.EventLocationUpdated, fn)
}

func (c *Client) OnDriverLocationUpdate(fn func(contracts.DriverLocationUpdated)) {
	on(c, contracts.EventDriverLocationUpdated, fn)
}

func (c *Client) OnRideAssignment(fn func(contracts.RideAssignment)) {
	on(c, contracts.EventRideAssignment, fn)
}

func (c *Client) OnApprovalRequest(fn func(contracts.ApprovalRequestReceived)) {
	on(c, contracts.EventApprovalRequestReceived, fn)
}

func (c *Client) OnPMApprovalRequest(fn func(contracts.PMApprovalReceived)) {
	on(c, contracts.EventPMApprovalReceived, fn)
}

func (c *Client) OnRideStatusChanged(fn func(contracts.RideStatusChanged)) {
	on(c, contracts.EventRideStatusChanged, fn)
}

func (c *Client) OnEmergencyAlert(fn func(contracts.EmergencyAlertReceived)) {
	on(c, contracts.EventEmergencyAlertReceived, fn)
}

func (c *Client) OnChatMessage(fn func(contracts.ChatMessageReceived)) {
	on(c, contracts.EventChatMessageReceived, fn)
}

func (c *Client) OnBulkLocationsUpdated(fn func(contracts.BulkLocationsUpdated)) {
	on(c, contracts.EventBulkLocationsUpdated, fn)
}

func (c *Client) OnDriverDisconnected(fn func(contracts.DriverDisconnected)) {
	on(c, contracts.EventDriverDisconnected, fn)
}

func (c *Client) OnHeartbeatAck(fn func(contracts.HeartbeatAck)) {
	on(c, contracts.EventHeartbeatAck, fn)
}

// on decodes into T before invoking the typed callback.
func on[T any](c *Client, event string, fn func(T)) {
	c.on(event, func(data json.RawMessage) {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logger.Error(context.Background(), "inbound_payload_invalid",
				"Dropped inbound event with undecodable payload", err,
				map[string]any{"event": event})
			return
		}
		fn(payload)
	})
}
