package contracts

import "encoding/json"

// Envelope is the minimal wire frame: every message is {"type": ..., "data": ...}.
// Data stays raw until the event-specific schema has been validated.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// GeoPoint is a bare coordinate pair used inside status/alert payloads.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address   string  `json:"address,omitempty"`
}
