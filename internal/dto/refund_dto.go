package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- User-Side Refund Request ---

type CreateRefundRequest struct {
	OrderId    uuid.UUID `json:"order_id" validate:"required"`
	Reason     string    `json:"reason" validate:"required,min=10,max=1000"`
	ReasonType string    `json:"reason_type" validate:"required,oneof=MEDICAL FINANCIAL_EMERGENCY DISSATISFACTION OTHER"`
}

type CreateRefundResponse struct {
	RefundId        uuid.UUID       `json:"refund_id"`
	Status          string          `json:"status"`
	EligibilityType string          `json:"eligibility_type,omitempty"`
	SuggestedAmount decimal.Decimal `json:"suggested_amount"`
	Message         string          `json:"message,omitempty"`
}

type EligibilityResponse struct {
	OrderId         uuid.UUID       `json:"order_id"`
	Eligible        bool            `json:"eligible"`
	EligibilityType string          `json:"eligibility_type,omitempty"`
	SuggestedAmount decimal.Decimal `json:"suggested_amount"`
	Message         string          `json:"message,omitempty"`
}

// --- User's Refund List ---

type UserRefundListResponse struct {
	Id              uuid.UUID       `json:"id"`
	OrderId         uuid.UUID       `json:"order_id"`
	CourseTitle     string          `json:"course_title,omitempty"`
	SuggestedAmount decimal.Decimal `json:"suggested_amount"`
	Reason          string          `json:"reason"`
	ReasonType      string          `json:"reason_type"`
	Status          string          `json:"status"`
	OfferExpiresAt  *time.Time      `json:"offer_expires_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type UserRefundDetailResponse struct {
	Id                 uuid.UUID       `json:"id"`
	OrderId            uuid.UUID       `json:"order_id"`
	CourseTitle        string          `json:"course_title,omitempty"`
	Reason             string          `json:"reason"`
	ReasonType         string          `json:"reason_type"`
	Status             string          `json:"status"`
	EligibilityType    string          `json:"eligibility_type,omitempty"`
	SuggestedAmount    decimal.Decimal `json:"suggested_amount"`
	ProgressPercentage float64         `json:"progress_percentage"`
	AdminNotes         string          `json:"admin_notes,omitempty"`
	OfferExpiresAt     *time.Time      `json:"offer_expires_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// --- Admin-Side Refund Management ---

type AdminRefundListQuery struct {
	Status   string `query:"status"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

type AdminRefundListResponse struct {
	Id                 uuid.UUID            `json:"id"`
	User               AdminRefundUserInfo  `json:"user"`
	Order              AdminRefundOrderInfo `json:"order"`
	SuggestedAmount    decimal.Decimal      `json:"suggested_amount"`
	Reason             string               `json:"reason"`
	ReasonType         string               `json:"reason_type"`
	Status             string               `json:"status"`
	EligibilityType    string               `json:"eligibility_type,omitempty"`
	ProgressPercentage float64              `json:"progress_percentage"`
	AdminNotes         string               `json:"admin_notes,omitempty"`
	OfferExpiresAt     *time.Time           `json:"offer_expires_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

type AdminRefundUserInfo struct {
	Id       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

type AdminRefundOrderInfo struct {
	Id          uuid.UUID       `json:"id"`
	CourseTitle string          `json:"course_title,omitempty"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

type AdminOfferRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	AdminNotes string          `json:"admin_notes,omitempty"`
}

type AdminOfferResponse struct {
	RefundId       uuid.UUID       `json:"refund_id"`
	Status         string          `json:"status"`
	OfferedAmount  decimal.Decimal `json:"offered_amount"`
	OfferExpiresAt time.Time       `json:"offer_expires_at"`
}

type AdminRejectRefundRequest struct {
	AdminNotes string `json:"admin_notes" validate:"required,min=3"`
}

type AdminRefundActionResponse struct {
	RefundId    uuid.UUID `json:"refund_id"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

type SweepResponse struct {
	ExpiredCount int       `json:"expired_count"`
	SweptAt      time.Time `json:"swept_at"`
}
