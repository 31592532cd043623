package implementation

import (
	"context"
	"errors"

	"courseflow-be/internal/model"
	"courseflow-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type enrollmentRepositoryImpl struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) contract.EnrollmentRepository {
	return &enrollmentRepositoryImpl{db: db}
}

// GetProgress returns 0 for an unknown enrollment: a learner who never
// opened the course is treated as zero progress, not as an error.
func (r *enrollmentRepositoryImpl) GetProgress(ctx context.Context, userID, courseID uuid.UUID) (float64, error) {
	var m model.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return m.ProgressPercentage, nil
}
