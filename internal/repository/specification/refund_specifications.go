package specification

import (
	"time"

	"courseflow-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveForOrder selects the non-terminal request of an order, if any.
// PENDING and APPROVED are the only non-terminal statuses.
type ActiveForOrder struct {
	OrderID uuid.UUID
}

func (s ActiveForOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("order_id = ? AND status IN ?", s.OrderID,
		[]string{string(entity.RequestStatusPending), string(entity.RequestStatusApproved)})
}

// ExpiredOffers selects APPROVED requests whose offer deadline has passed.
type ExpiredOffers struct {
	Now time.Time
}

func (s ExpiredOffers) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND offer_expires_at IS NOT NULL AND offer_expires_at <= ?",
		string(entity.RequestStatusApproved), s.Now)
}

// ForUser scopes a query to one learner's records.
type ForUser struct {
	UserID uuid.UUID
}

func (s ForUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ByUserAndCourse locates a single enrollment.
type ByUserAndCourse struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
}

func (s ByUserAndCourse) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND course_id = ?", s.UserID, s.CourseID)
}
