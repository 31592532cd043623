package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Enrollment struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_course,priority:1"`
	CourseID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_course,priority:2"`
	ProgressPercentage float64   `gorm:"type:decimal(5,2);not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
