package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleLearner UserRole = "learner"
	UserRoleAdmin   UserRole = "admin"
)

// User is owned by the identity subsystem; the refund workflow reads it
// for ownership checks and decision emails only.
type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}
