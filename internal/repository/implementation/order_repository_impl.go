package implementation

import (
	"context"
	"errors"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/model"
	"courseflow-be/internal/repository/contract"
	"courseflow-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type orderRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) contract.OrderRepository {
	return &orderRepositoryImpl{db: db}
}

func (r *orderRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Order, error) {
	var m model.Order
	query := r.db.WithContext(ctx).Preload("Course")

	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &entity.Order{
		ID:            m.ID,
		UserID:        m.UserID,
		CourseID:      m.CourseID,
		FinalPrice:    m.FinalPrice,
		PaymentStatus: entity.PaymentStatus(m.PaymentStatus),
		PaidAt:        m.PaidAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Course: entity.Course{
			ID:    m.Course.ID,
			Title: m.Course.Title,
		},
	}, nil
}

func (r *orderRepositoryImpl) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("payment_status", string(status)).Error
}
