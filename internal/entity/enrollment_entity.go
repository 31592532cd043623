package entity

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a learner to a course and tracks study progress.
// Owned by the enrollment store; the refund workflow only reads
// ProgressPercentage as a point-in-time snapshot.
type Enrollment struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	CourseID           uuid.UUID
	ProgressPercentage float64 // 0-100
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
