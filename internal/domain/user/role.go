package user

import (
	"errors"
	"strings"
)

// Role is a user role as presented at join time. Role strings are part of
// the wire contract: identity rooms are derived as "{role}_{userId}".
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleDriver         Role = "driver"
	RoleProjectManager Role = "project_manager"
	RoleDepartmentHead Role = "department_head"
	RoleEmployee       Role = "employee"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes (lowercases+trims) and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleAdmin, RoleDriver, RoleProjectManager, RoleDepartmentHead, RoleEmployee:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

// Convenience helpers.
func (role Role) IsAdmin() bool          { return role == RoleAdmin }
func (role Role) IsDriver() bool         { return role == RoleDriver }
func (role Role) IsProjectManager() bool { return role == RoleProjectManager }
func (role Role) IsDepartmentHead() bool { return role == RoleDepartmentHead }
