package service

import (
	"context"

	"courseflow-be/internal/apperror"
	"courseflow-be/internal/dto"
	"courseflow-be/internal/entity"
	"courseflow-be/internal/pkg/logger"
	"courseflow-be/internal/pkg/mailer"
	"courseflow-be/internal/repository/memory"
	"courseflow-be/internal/repository/specification"
	"courseflow-be/internal/repository/unitofwork"
	"courseflow-be/pkg/refund/lifecycle"

	"github.com/google/uuid"
)

type RefundService interface {
	// Submission and preview
	CreateRequest(ctx context.Context, userId uuid.UUID, req *dto.CreateRefundRequest) (*dto.CreateRefundResponse, error)
	GetEligibility(ctx context.Context, userId, orderId uuid.UUID) (*dto.EligibilityResponse, error)

	// Learner's own records
	ListMyRequests(ctx context.Context, userId uuid.UUID) ([]*dto.UserRefundListResponse, error)
	GetMyRequest(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error)

	// Offer decisions
	AcceptOffer(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error)
	RejectOffer(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error)
	CancelRequest(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error)
}

type refundService struct {
	uowFactory   unitofwork.RepositoryFactory
	manager      *lifecycle.Manager
	eligCache    *memory.EligibilityCache
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewRefundService(
	uowFactory unitofwork.RepositoryFactory,
	manager *lifecycle.Manager,
	eligCache *memory.EligibilityCache,
	emailService mailer.IEmailService,
	log logger.ILogger,
) RefundService {
	return &refundService{
		uowFactory:   uowFactory,
		manager:      manager,
		eligCache:    eligCache,
		emailService: emailService,
		logger:       log,
	}
}

func (s *refundService) CreateRequest(ctx context.Context, userId uuid.UUID, req *dto.CreateRefundRequest) (*dto.CreateRefundResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	result, err := s.manager.CreateRequest(ctx, uow, lifecycle.CreateInput{
		OrderID:    req.OrderId,
		UserID:     userId,
		Reason:     req.Reason,
		ReasonType: entity.ReasonType(req.ReasonType),
	})
	if err != nil {
		return nil, err
	}

	// The snapshot just taken supersedes any cached preview
	s.eligCache.Invalidate(userId, req.OrderId)

	return &dto.CreateRefundResponse{
		RefundId:        result.Request.ID,
		Status:          string(result.Request.Status),
		EligibilityType: string(result.Request.EligibilityType),
		SuggestedAmount: result.Request.SuggestedAmount,
		Message:         result.Message,
	}, nil
}

func (s *refundService) GetEligibility(ctx context.Context, userId, orderId uuid.UUID) (*dto.EligibilityResponse, error) {
	preview, found := s.eligCache.Get(userId, orderId)
	if !found {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		var err error
		preview, err = s.manager.GetEligibility(ctx, uow, userId, orderId)
		if err != nil {
			return nil, err
		}
		s.eligCache.Save(userId, orderId, preview)
	}

	return &dto.EligibilityResponse{
		OrderId:         orderId,
		Eligible:        preview.Eligible,
		EligibilityType: string(preview.Type),
		SuggestedAmount: preview.SuggestedAmount,
		Message:         preview.Message,
	}, nil
}

func (s *refundService) ListMyRequests(ctx context.Context, userId uuid.UUID) ([]*dto.UserRefundListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	requests, err := uow.RefundRequestRepository().FindAllWithDetails(ctx,
		specification.ForUser{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.UserRefundListResponse, 0, len(requests))
	for _, req := range requests {
		result = append(result, &dto.UserRefundListResponse{
			Id:              req.ID,
			OrderId:         req.OrderID,
			CourseTitle:     req.Order.Course.Title,
			SuggestedAmount: req.SuggestedAmount,
			Reason:          req.Reason,
			ReasonType:      string(req.ReasonType),
			Status:          string(req.Status),
			OfferExpiresAt:  req.OfferExpiresAt,
			CreatedAt:       req.CreatedAt,
		})
	}
	return result, nil
}

func (s *refundService) GetMyRequest(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return s.loadDetail(ctx, uow, userId, requestId)
}

func (s *refundService) AcceptOffer(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	accepted, err := s.manager.AcceptOffer(ctx, uow, userId, requestId)
	if err != nil {
		return nil, err
	}

	s.sendCompletionEmail(ctx, uow, accepted)

	return s.loadDetail(ctx, uow, userId, requestId)
}

func (s *refundService) RejectOffer(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.manager.RejectOffer(ctx, uow, userId, requestId); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, uow, userId, requestId)
}

func (s *refundService) CancelRequest(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.manager.CancelRequest(ctx, uow, userId, requestId); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, uow, userId, requestId)
}

func (s *refundService) loadDetail(ctx context.Context, uow unitofwork.UnitOfWork, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error) {
	requests, err := uow.RefundRequestRepository().FindAllWithDetails(ctx,
		specification.ByID{ID: requestId},
	)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 || requests[0].UserID != userId {
		return nil, apperror.New(apperror.KindNotFound, "refund request not found")
	}
	req := requests[0]

	return &dto.UserRefundDetailResponse{
		Id:                 req.ID,
		OrderId:            req.OrderID,
		CourseTitle:        req.Order.Course.Title,
		Reason:             req.Reason,
		ReasonType:         string(req.ReasonType),
		Status:             string(req.Status),
		EligibilityType:    string(req.EligibilityType),
		SuggestedAmount:    req.SuggestedAmount,
		ProgressPercentage: req.ProgressPercentage,
		AdminNotes:         req.AdminNotes,
		OfferExpiresAt:     req.OfferExpiresAt,
		CreatedAt:          req.CreatedAt,
		UpdatedAt:          req.UpdatedAt,
	}, nil
}

// sendCompletionEmail is best-effort: a refused SMTP connection must not
// undo an already committed refund.
func (s *refundService) sendCompletionEmail(ctx context.Context, uow unitofwork.UnitOfWork, req *entity.RefundRequest) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: req.UserID})
	if err != nil || user == nil {
		s.logger.Warn("REFUND", "Cannot load user for completion email", map[string]interface{}{
			"user_id": req.UserID.String(),
		})
		return
	}
	order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: req.OrderID})
	if err != nil || order == nil {
		return
	}

	go func() {
		if err := s.emailService.SendRefundCompleted(user.Email, order.Course.Title, req.SuggestedAmount); err != nil {
			s.logger.Error("REFUND", "Failed to send completion email", map[string]interface{}{
				"error":   err.Error(),
				"user_id": req.UserID.String(),
			})
		}
	}()
}
