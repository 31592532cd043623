package entity

import (
	"time"

	"github.com/google/uuid"
)

// Course carries the display fields the refund surfaces need. The course
// catalog itself is owned elsewhere.
type Course struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
}
