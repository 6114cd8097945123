package contracts

// Inbound (client -> server) payload schemas. Each type carries the
// `validate` tags the hub checks before dispatch; a payload that fails
// validation is dropped and logged, never routed.

// JoinRoom registers the connection's identity and subscribes it to its
// derived identity room ("{role}_{userId}").
type JoinRoom struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// LocationUpdate upserts the driver's live location record.
type LocationUpdate struct {
	DriverID     string  `json:"driverId" validate:"required"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RideID       string  `json:"rideId,omitempty"`
	DailyRouteID string  `json:"dailyRouteId,omitempty"`
}

// RideAssigned notifies a driver that a ride was assigned to them.
type RideAssigned struct {
	DriverID string `json:"driverId" validate:"required"`
	RideID   string `json:"rideId" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

// ApprovalRequest routes a ride approval request to a department head.
type ApprovalRequest struct {
	DepartmentHeadID string `json:"departmentHeadId" validate:"required"`
	RideID           string `json:"rideId" validate:"required"`
	Message          string `json:"message" validate:"required"`
}

// PMApprovalRequest routes a ride approval request to a project manager.
type PMApprovalRequest struct {
	ProjectManagerID string `json:"projectManagerId" validate:"required"`
	RideID           string `json:"rideId" validate:"required"`
	Message          string `json:"message" validate:"required"`
}

// RideStatusUpdate announces a ride lifecycle transition to its trackers.
type RideStatusUpdate struct {
	RideID   string    `json:"rideId" validate:"required"`
	Status   string    `json:"status" validate:"required"`
	Location *GeoPoint `json:"location,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// EmergencyAlert is the safety-critical path; it is routed to admins
// unconditionally.
type EmergencyAlert struct {
	DriverID string   `json:"driverId" validate:"required"`
	Location GeoPoint `json:"location" validate:"required"`
	Message  string   `json:"message" validate:"required"`
}

// ChatMessage is relayed to the ride room only; nothing is persisted.
type ChatMessage struct {
	RideID     string `json:"rideId" validate:"required"`
	SenderID   string `json:"senderId" validate:"required"`
	Message    string `json:"message" validate:"required"`
	SenderRole string `json:"senderRole" validate:"required"`
}

// BulkLocationUpdate upserts many location records in one pass.
type BulkLocationUpdate struct {
	Locations []LocationUpdate `json:"locations" validate:"required,min=1,dive"`
}
