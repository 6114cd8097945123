package contracts

import "time"

// Outbound (server -> client) payload shapes. These mirror the wire table in
// the protocol docs; field names and JSON keys are a compatibility surface.

// LocationUpdated is the reduced payload broadcast to ride trackers.
type LocationUpdated struct {
	DriverID  string    `json:"driverId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// DriverLocationUpdated is the fuller payload broadcast to the admin room.
type DriverLocationUpdated struct {
	DriverID     string  `json:"driverId"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RideID       string  `json:"rideId,omitempty"`
	DailyRouteID string  `json:"dailyRouteId,omitempty"`
}

// RideAssignment is delivered to the assigned driver's identity room.
type RideAssignment struct {
	RideID    string    `json:"rideId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ApprovalRequestReceived is delivered to a department head's identity room.
type ApprovalRequestReceived struct {
	RideID    string    `json:"rideId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PMApprovalReceived is delivered to a project manager's identity room.
type PMApprovalReceived struct {
	RideID    string    `json:"rideId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RideStatusChanged is delivered to everyone tracking the ride.
type RideStatusChanged struct {
	RideID    string    `json:"rideId"`
	Status    string    `json:"status"`
	Location  *GeoPoint `json:"location,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EmergencyAlertReceived is delivered to the admin room.
type EmergencyAlertReceived struct {
	DriverID  string    `json:"driverId"`
	Location  GeoPoint  `json:"location"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessageReceived is delivered to the ride room.
type ChatMessageReceived struct {
	RideID     string    `json:"rideId"`
	SenderID   string    `json:"senderId"`
	Message    string    `json:"message"`
	SenderRole string    `json:"senderRole"`
	Timestamp  time.Time `json:"timestamp"`
}

// BulkLocationsUpdated aggregates one bulk upsert pass for the admin room.
type BulkLocationsUpdated struct {
	Locations []DriverLocationUpdated `json:"locations"`
	Count     int                     `json:"count"`
	Timestamp time.Time               `json:"timestamp"`
}

// DriverDisconnected tells admins a driver's connection went away.
type DriverDisconnected struct {
	DriverID  string    `json:"driverId"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatAck answers a heartbeat on the same connection only.
type HeartbeatAck struct {
	Timestamp time.Time `json:"timestamp"`
}
