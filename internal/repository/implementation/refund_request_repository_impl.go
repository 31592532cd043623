package implementation

import (
	"context"
	"errors"
	"time"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/model"
	"courseflow-be/internal/repository/contract"
	"courseflow-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type refundRequestRepositoryImpl struct {
	db *gorm.DB
}

func NewRefundRequestRepository(db *gorm.DB) contract.RefundRequestRepository {
	return &refundRequestRepositoryImpl{db: db}
}

func (r *refundRequestRepositoryImpl) Create(ctx context.Context, req *entity.RefundRequest) error {
	m := &model.RefundRequest{
		ID:                 req.ID,
		OrderID:            req.OrderID,
		UserID:             req.UserID,
		Reason:             req.Reason,
		ReasonType:         string(req.ReasonType),
		Status:             string(req.Status),
		EligibilityType:    string(req.EligibilityType),
		SuggestedAmount:    req.SuggestedAmount,
		ProgressPercentage: req.ProgressPercentage,
		AdminNotes:         req.AdminNotes,
		OfferExpiresAt:     req.OfferExpiresAt,
		Version:            req.Version,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		// The partial unique index on (order_id) for non-terminal statuses
		// rejects a racing second submission.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.ErrDuplicateActive
		}
		return err
	}
	req.CreatedAt = m.CreatedAt
	req.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *refundRequestRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RefundRequest, error) {
	var m model.RefundRequest
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapToEntity(&m), nil
}

func (r *refundRequestRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundRequest, error) {
	var models []*model.RefundRequest
	query := r.db.WithContext(ctx)

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	var requests []*entity.RefundRequest
	for _, m := range models {
		requests = append(requests, r.mapToEntity(m))
	}

	return requests, nil
}

// FindAllWithDetails returns requests with preloaded Order and User relations
func (r *refundRequestRepositoryImpl) FindAllWithDetails(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundRequest, error) {
	var models []*model.RefundRequest
	query := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Course").
		Preload("User")

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	var requests []*entity.RefundRequest
	for _, m := range models {
		req := r.mapToEntity(m)
		req.Order = entity.Order{
			ID:            m.Order.ID,
			UserID:        m.Order.UserID,
			CourseID:      m.Order.CourseID,
			FinalPrice:    m.Order.FinalPrice,
			PaymentStatus: entity.PaymentStatus(m.Order.PaymentStatus),
			PaidAt:        m.Order.PaidAt,
			Course: entity.Course{
				ID:    m.Order.Course.ID,
				Title: m.Order.Course.Title,
			},
		}
		req.User = entity.User{
			ID:       m.User.ID,
			Email:    m.User.Email,
			FullName: m.User.FullName,
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func (r *refundRequestRepositoryImpl) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*entity.RefundRequest, error) {
	return r.FindOne(ctx, specification.ActiveForOrder{OrderID: orderID})
}

func (r *refundRequestRepositoryImpl) FindExpiredOffers(ctx context.Context, now time.Time) ([]*entity.RefundRequest, error) {
	return r.FindAll(ctx,
		specification.ExpiredOffers{Now: now},
		specification.OrderBy{Field: "offer_expires_at", Desc: false},
	)
}

func (r *refundRequestRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, upd contract.StatusUpdate, expectedVersion int) error {
	fields := map[string]interface{}{
		"status":  string(upd.Status),
		"version": expectedVersion + 1,
	}
	if upd.SuggestedAmount != nil {
		fields["suggested_amount"] = *upd.SuggestedAmount
	}
	if upd.AdminNotes != nil {
		fields["admin_notes"] = *upd.AdminNotes
	}
	if upd.OfferExpiresAt != nil {
		fields["offer_expires_at"] = *upd.OfferExpiresAt
	}

	result := r.db.WithContext(ctx).Model(&model.RefundRequest{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrVersionConflict
	}
	return nil
}

// mapToEntity converts model.RefundRequest to entity.RefundRequest
func (r *refundRequestRepositoryImpl) mapToEntity(m *model.RefundRequest) *entity.RefundRequest {
	return &entity.RefundRequest{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		UserID:             m.UserID,
		Reason:             m.Reason,
		ReasonType:         entity.ReasonType(m.ReasonType),
		Status:             entity.RequestStatus(m.Status),
		EligibilityType:    entity.EligibilityType(m.EligibilityType),
		SuggestedAmount:    m.SuggestedAmount,
		ProgressPercentage: m.ProgressPercentage,
		AdminNotes:         m.AdminNotes,
		OfferExpiresAt:     m.OfferExpiresAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
