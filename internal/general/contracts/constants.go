package contracts

// Client -> server event names.
const (
	EventJoinRoom           = "join_room"
	EventLocationUpdate     = "location_update"
	EventJoinRideTracking   = "join_ride_tracking"
	EventRideAssigned       = "ride_assigned"
	EventApprovalRequest    = "approval_request"
	EventPMApprovalRequest  = "pm_approval_request"
	EventRideStatusUpdate   = "ride_status_update"
	EventEmergencyAlert     = "emergency_alert"
	EventChatMessage        = "chat_message"
	EventBulkLocationUpdate = "bulk_location_update"
	EventHeartbeat          = "heartbeat"
)

// Server -> client event names.
const (
	EventLocationUpdated         = "location_updated"
	EventDriverLocationUpdated   = "driver_location_updated"
	EventRideAssignment          = "ride_assignment"
	EventApprovalRequestReceived = "approval_request_received"
	EventPMApprovalReceived      = "pm_approval_received"
	EventRideStatusChanged       = "ride_status_changed"
	EventEmergencyAlertReceived  = "emergency_alert_received"
	EventChatMessageReceived     = "chat_message_received"
	EventBulkLocationsUpdated    = "bulk_locations_updated"
	EventDriverDisconnected      = "driver_disconnected"
	EventHeartbeatAck            = "heartbeat_ack"
)
