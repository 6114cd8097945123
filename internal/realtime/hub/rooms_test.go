package hub

import (
	"testing"

	"ride-realtime/internal/domain/user"

	"github.com/stretchr/testify/assert"
)

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "driver_D1", IdentityRoom(user.RoleDriver, "D1"))
	assert.Equal(t, "department_head_H7", IdentityRoom(user.RoleDepartmentHead, "H7"))
	assert.Equal(t, "ride_R1", RideRoom("R1"))
}

func TestRoomIndex_JoinAndMembers(t *testing.T) {
	idx := NewRoomIndex()

	idx.Join("c1", "ride_R1")
	idx.Join("c2", "ride_R1")
	idx.Join("c1", "admin")

	assert.ElementsMatch(t, []string{"c1", "c2"}, idx.Members("ride_R1"))
	assert.ElementsMatch(t, []string{"c1"}, idx.Members("admin"))
	assert.ElementsMatch(t, []string{"ride_R1", "admin"}, idx.Rooms("c1"))
	assert.True(t, idx.InRoom("c1", "ride_R1"))
	assert.False(t, idx.InRoom("c2", "admin"))
}

func TestRoomIndex_JoinIsIdempotent(t *testing.T) {
	idx := NewRoomIndex()

	idx.Join("c1", "ride_R1")
	idx.Join("c1", "ride_R1")

	assert.Len(t, idx.Members("ride_R1"), 1)
}

func TestRoomIndex_Leave(t *testing.T) {
	idx := NewRoomIndex()

	idx.Join("c1", "ride_R1")
	idx.Join("c2", "ride_R1")
	idx.Leave("c1", "ride_R1")

	assert.ElementsMatch(t, []string{"c2"}, idx.Members("ride_R1"))
	assert.Empty(t, idx.Rooms("c1"))
}

func TestRoomIndex_LeaveAll(t *testing.T) {
	idx := NewRoomIndex()

	idx.Join("c1", "ride_R1")
	idx.Join("c1", "ride_R2")
	idx.Join("c1", "admin")
	idx.Join("c2", "ride_R1")

	idx.LeaveAll("c1")

	assert.Empty(t, idx.Rooms("c1"))
	assert.ElementsMatch(t, []string{"c2"}, idx.Members("ride_R1"))
	assert.Empty(t, idx.Members("ride_R2"))
	assert.Empty(t, idx.Members("admin"))
}
