package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundRequest persistence model. The partial unique index enforcing
// "one non-terminal request per order" lives in cmd/migrate because GORM
// tags cannot express a WHERE clause.
type RefundRequest struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	Reason             string          `gorm:"type:text;not null"`
	ReasonType         string          `gorm:"type:varchar(30);not null"`
	Status             string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	EligibilityType    string          `gorm:"type:varchar(10)"`
	SuggestedAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ProgressPercentage float64         `gorm:"type:decimal(5,2);not null"`
	AdminNotes         string          `gorm:"type:text"`
	OfferExpiresAt     *time.Time      `gorm:"index"`
	Version            int             `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`

	// Relations
	Order Order `gorm:"foreignKey:OrderID"`
	User  User  `gorm:"foreignKey:UserID"`
}

func (RefundRequest) TableName() string {
	return "refund_requests"
}
