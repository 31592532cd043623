package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the order store's payment states. The refund
// workflow reads orders and flips their status, nothing else.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefundPending     PaymentStatus = "REFUND_PENDING"
	PaymentStatusRefundFailed      PaymentStatus = "REFUND_FAILED"
)

// Order is a purchase record linking a learner to a course at a price.
// Owned by the order store; read-only here apart from status flips.
type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CourseID      uuid.UUID
	FinalPrice    decimal.Decimal
	PaymentStatus PaymentStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Course Course
}

// Refundable reports whether a refund request may be opened against the
// order at all.
func (o *Order) Refundable() bool {
	return o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusRefundFailed
}

// AgeDays returns the whole days elapsed since payment. Returns -1 when
// the order was never paid.
func (o *Order) AgeDays(now time.Time) int {
	if o.PaidAt == nil {
		return -1
	}
	return int(now.Sub(*o.PaidAt).Hours() / 24)
}
