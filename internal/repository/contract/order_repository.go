package contract

import (
	"context"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/repository/specification"

	"github.com/google/uuid"
)

// OrderRepository is the refund workflow's window onto the order store.
// Orders are owned elsewhere; the workflow only reads them and flips
// their payment status as refund requests move through the state machine.
type OrderRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error
}
