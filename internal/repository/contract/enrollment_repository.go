package contract

import (
	"context"

	"github.com/google/uuid"
)

// EnrollmentRepository exposes the single read the refund workflow needs
// from the enrollment store: the learner's progress snapshot.
type EnrollmentRepository interface {
	GetProgress(ctx context.Context, userID, courseID uuid.UUID) (float64, error)
}
