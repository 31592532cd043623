package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	CourseID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	FinalPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PaymentStatus string          `gorm:"type:varchar(30);not null;default:'PENDING';index"`
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`

	User   User   `gorm:"foreignKey:UserID"`
	Course Course `gorm:"foreignKey:CourseID"`
}

func (Order) TableName() string {
	return "orders"
}
