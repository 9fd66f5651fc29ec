package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleGestor Role = "gestor"
	RoleAdmin  Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleGestor, RoleAdmin}

// ParseRole validates a raw role string against the allow-list.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleGestor:
		return RoleGestor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is the identity record used by both services.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSummary is the read-only identity embedded in tickets and comments.
type UserSummary struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Summary projects the public identity of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
