package hub

import (
	"sync"
	"time"
)

// LocationRecord is the live per-driver position. Exactly one record exists
// per driver (last write wins); it lives only in hub memory.
type LocationRecord struct {
	DriverID     string    `json:"driverId"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RideID       string    `json:"rideId,omitempty"`
	DailyRouteID string    `json:"dailyRouteId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// LocationTable holds the latest location per driver under an RWMutex. It is
// the second piece of hub-owned state.
type LocationTable struct {
	mu      sync.RWMutex
	records map[string]LocationRecord
	now     func() time.Time
}

// NewLocationTable creates an empty table.
func NewLocationTable() *LocationTable {
	return &LocationTable{
		records: make(map[string]LocationRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Upsert stamps and stores the record, overwriting any previous one for the
// same driver. Timestamps stay monotonically non-decreasing per driver even
// if the wall clock steps backwards.
func (t *LocationTable) Upsert(rec LocationRecord) LocationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := t.now()
	if prev, ok := t.records[rec.DriverID]; ok && ts.Before(prev.Timestamp) {
		ts = prev.Timestamp
	}
	rec.Timestamp = ts
	t.records[rec.DriverID] = rec
	return rec
}

// Get returns the live record for a driver, if any.
func (t *LocationTable) Get(driverID string) (LocationRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[driverID]
	return rec, ok
}

// Remove deletes a driver's record. Called when the owning connection
// disconnects.
func (t *LocationTable) Remove(driverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, driverID)
}

// Snapshot returns a copy of all live records, for the HTTP snapshot
// endpoint and cold-start reconciliation.
func (t *LocationTable) Snapshot() []LocationRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]LocationRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	return out
}

// Count returns the number of live records.
func (t *LocationTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Reap evicts every record older than staleAfter and returns the evicted
// driver IDs. Eviction is silent: absence from the snapshot is the signal.
func (t *LocationTable) Reap(staleAfter time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-staleAfter)
	var evicted []string
	for driverID, rec := range t.records {
		if rec.Timestamp.Before(cutoff) {
			delete(t.records, driverID)
			evicted = append(evicted, driverID)
		}
	}
	return evicted
}
