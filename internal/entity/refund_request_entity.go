package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus represents the lifecycle status of a refund request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusExpired   RequestStatus = "EXPIRED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
	RequestStatusCompleted RequestStatus = "COMPLETED"
)

// IsTerminal reports whether the status admits no further transitions.
// Terminal records are kept forever for audit.
func (s RequestStatus) IsTerminal() bool {
	return s != RequestStatusPending && s != RequestStatusApproved
}

// ReasonType categorizes why the learner wants the money back
type ReasonType string

const (
	ReasonTypeMedical            ReasonType = "MEDICAL"
	ReasonTypeFinancialEmergency ReasonType = "FINANCIAL_EMERGENCY"
	ReasonTypeDissatisfaction    ReasonType = "DISSATISFACTION"
	ReasonTypeOther              ReasonType = "OTHER"
)

// EligibilityType distinguishes full from pro-rated refunds
type EligibilityType string

const (
	EligibilityFull    EligibilityType = "FULL"
	EligibilityPartial EligibilityType = "PARTIAL"
)

// RefundRequest is the central record of the refund workflow. At most one
// request per order may be in a non-terminal status at any time.
// ProgressPercentage and SuggestedAmount are snapshots taken at creation;
// the progress snapshot is never refreshed afterwards, even if the learner
// keeps studying while the request is open.
type RefundRequest struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	UserID             uuid.UUID
	Reason             string
	ReasonType         ReasonType
	Status             RequestStatus
	EligibilityType    EligibilityType // empty when the request was auto-rejected
	SuggestedAmount    decimal.Decimal
	ProgressPercentage float64
	AdminNotes         string
	OfferExpiresAt     *time.Time // set only while an admin offer is open
	Version            int        // optimistic lock counter
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Order Order
	User  User
}

// HasOpenOffer reports whether an admin offer is awaiting the learner's
// decision at the given instant.
func (r *RefundRequest) HasOpenOffer(now time.Time) bool {
	return r.Status == RequestStatusApproved && r.OfferExpiresAt != nil && now.Before(*r.OfferExpiresAt)
}
