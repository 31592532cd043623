package contract

import (
	"context"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/repository/specification"
)

type UserRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
}
