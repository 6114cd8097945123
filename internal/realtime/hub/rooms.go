package hub

import (
	"sync"

	"ride-realtime/internal/domain/user"
)

// RoomAdmin receives every driver location update and all emergency and
// disconnect events.
const RoomAdmin = "admin"

// IdentityRoom derives the per-user broadcast room ("{role}_{userId}").
func IdentityRoom(role user.Role, userID string) string {
	return role.String() + "_" + userID
}

// RideRoom derives the per-ride tracking room.
func RideRoom(rideID string) string {
	return "ride_" + rideID
}

// RoomIndex keeps the many-to-many membership between connections and rooms,
// indexed from both sides so the disconnect path stays O(rooms of conn).
type RoomIndex struct {
	mu        sync.RWMutex
	rooms     map[string]map[string]bool // room -> connIDs
	connRooms map[string]map[string]bool // connID -> rooms
}

// NewRoomIndex creates an empty index.
func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		rooms:     make(map[string]map[string]bool),
		connRooms: make(map[string]map[string]bool),
	}
}

// Join adds a connection to a room. Joining twice is a no-op.
func (idx *RoomIndex) Join(connID, room string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.rooms[room] == nil {
		idx.rooms[room] = make(map[string]bool)
	}
	idx.rooms[room][connID] = true

	if idx.connRooms[connID] == nil {
		idx.connRooms[connID] = make(map[string]bool)
	}
	idx.connRooms[connID][room] = true
}

// Leave removes a connection from a room. Empty rooms are deleted.
func (idx *RoomIndex) Leave(connID, room string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.rooms[room] != nil {
		delete(idx.rooms[room], connID)
		if len(idx.rooms[room]) == 0 {
			delete(idx.rooms, room)
		}
	}

	if idx.connRooms[connID] != nil {
		delete(idx.connRooms[connID], room)
		if len(idx.connRooms[connID]) == 0 {
			delete(idx.connRooms, connID)
		}
	}
}

// LeaveAll removes a connection from every room it belongs to. Called from
// the disconnect path so no membership can outlive its connection.
func (idx *RoomIndex) LeaveAll(connID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for room := range idx.connRooms[connID] {
		if idx.rooms[room] != nil {
			delete(idx.rooms[room], connID)
			if len(idx.rooms[room]) == 0 {
				delete(idx.rooms, room)
			}
		}
	}
	delete(idx.connRooms, connID)
}

// Members returns the connection IDs currently in a room.
func (idx *RoomIndex) Members(room string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	members := make([]string, 0, len(idx.rooms[room]))
	for connID := range idx.rooms[room] {
		members = append(members, connID)
	}
	return members
}

// Rooms returns the rooms a connection currently belongs to.
func (idx *RoomIndex) Rooms(connID string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rooms := make([]string, 0, len(idx.connRooms[connID]))
	for room := range idx.connRooms[connID] {
		rooms = append(rooms, room)
	}
	return rooms
}

// InRoom reports whether a connection is a member of a room.
func (idx *RoomIndex) InRoom(connID, room string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.rooms[room][connID]
}
