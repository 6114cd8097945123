package notify

import (
	"ride-realtime/internal/client"
	"ride-realtime/internal/general/contracts"
)

// BindTransport feeds the store from the transport client's inbound events:
// ride assignments, approval requests, status changes, emergencies, and
// driver disconnects all become notifications. Call once per store/client
// pair; tear down with the client's RemoveAllListeners.
func BindTransport(c *client.Client, store *Store, userID string) {
	c.OnRideAssignment(func(e contracts.RideAssignment) {
		store.AddNotification(Input{
			Title:    "Ride assigned",
			Message:  e.Message,
			Severity: SeveritySuccess,
			UserID:   userID,
			RideID:   e.RideID,
		})
	})

	c.OnApprovalRequest(func(e contracts.ApprovalRequestReceived) {
		store.AddNotification(Input{
			Title:    "Ride approval requested",
			Message:  e.Message,
			Severity: SeverityInfo,
			UserID:   userID,
			RideID:   e.RideID,
		})
	})

	c.OnPMApprovalRequest(func(e contracts.PMApprovalReceived) {
		store.AddNotification(Input{
			Title:    "Project approval requested",
			Message:  e.Message,
			Severity: SeverityInfo,
			UserID:   userID,
			RideID:   e.RideID,
		})
	})

	c.OnRideStatusChanged(func(e contracts.RideStatusChanged) {
		store.AddNotification(Input{
			Title:    "Ride " + e.Status,
			Message:  e.Message,
			Severity: SeverityInfo,
			UserID:   userID,
			RideID:   e.RideID,
		})
	})

	c.OnEmergencyAlert(func(e contracts.EmergencyAlertReceived) {
		store.AddNotification(Input{
			Title:    "Emergency alert",
			Message:  e.Message,
			Severity: SeverityError,
			UserID:   userID,
		})
	})

	c.OnDriverDisconnected(func(e contracts.DriverDisconnected) {
		store.AddNotification(Input{
			Title:    "Driver offline",
			Message:  "Driver " + e.DriverID + " disconnected",
			Severity: SeverityWarning,
			UserID:   userID,
		})
	})
}
