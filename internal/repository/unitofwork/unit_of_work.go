package unitofwork

import (
	"context"

	"courseflow-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RefundRequestRepository() contract.RefundRequestRepository
	OrderRepository() contract.OrderRepository
	EnrollmentRepository() contract.EnrollmentRepository
	UserRepository() contract.UserRepository
}
