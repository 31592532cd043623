package contract

import (
	"context"
	"errors"
	"time"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrVersionConflict is returned by UpdateStatus when the expected
// version no longer matches, i.e. a concurrent writer got there first.
var ErrVersionConflict = errors.New("refund request was modified concurrently")

// ErrDuplicateActive is returned by Create when the partial unique index
// rejects a second non-terminal request for the same order.
var ErrDuplicateActive = errors.New("an active refund request already exists for this order")

// StatusUpdate carries the fields a transition is allowed to touch.
// Nil pointers leave the column untouched.
type StatusUpdate struct {
	Status          entity.RequestStatus
	SuggestedAmount *decimal.Decimal
	AdminNotes      *string
	OfferExpiresAt  *time.Time
}

type RefundRequestRepository interface {
	Create(ctx context.Context, req *entity.RefundRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RefundRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundRequest, error)
	FindAllWithDetails(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundRequest, error)
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*entity.RefundRequest, error)
	FindExpiredOffers(ctx context.Context, now time.Time) ([]*entity.RefundRequest, error)
	// UpdateStatus applies a transition guarded by an optimistic version
	// check; ErrVersionConflict when the row moved underneath us.
	UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate, expectedVersion int) error
}
