package service

import (
	"context"
	"time"

	"courseflow-be/internal/apperror"
	"courseflow-be/internal/dto"
	"courseflow-be/internal/entity"
	"courseflow-be/internal/pkg/logger"
	"courseflow-be/internal/pkg/mailer"
	"courseflow-be/internal/repository/specification"
	"courseflow-be/internal/repository/unitofwork"
	"courseflow-be/pkg/clock"
	"courseflow-be/pkg/refund/lifecycle"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sweepLockKey = "refund:sweep:lock"
	sweepLockTTL = 5 * time.Minute
)

type IAdminService interface {
	// Refund queue
	GetRefunds(ctx context.Context, query dto.AdminRefundListQuery) ([]*dto.AdminRefundListResponse, error)

	// Decisions
	IssueOffer(ctx context.Context, refundId uuid.UUID, req dto.AdminOfferRequest) (*dto.AdminOfferResponse, error)
	RejectRefund(ctx context.Context, refundId uuid.UUID, req dto.AdminRejectRefundRequest) (*dto.AdminRefundActionResponse, error)

	// Maintenance
	SweepExpiredOffers(ctx context.Context) (*dto.SweepResponse, error)
}

type adminService struct {
	uowFactory   unitofwork.RepositoryFactory
	manager      *lifecycle.Manager
	emailService mailer.IEmailService
	redisClient  *redis.Client
	clock        clock.Clock
	logger       logger.ILogger
}

func NewAdminService(
	uowFactory unitofwork.RepositoryFactory,
	manager *lifecycle.Manager,
	emailService mailer.IEmailService,
	redisClient *redis.Client,
	clk clock.Clock,
	log logger.ILogger,
) IAdminService {
	return &adminService{
		uowFactory:   uowFactory,
		manager:      manager,
		emailService: emailService,
		redisClient:  redisClient,
		clock:        clk,
		logger:       log,
	}
}

// ============================================================================
// Refund Queue
// ============================================================================

func (s *adminService) GetRefunds(ctx context.Context, query dto.AdminRefundListQuery) ([]*dto.AdminRefundListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
	}
	if query.Status != "" {
		specs = append(specs, specification.Filter("status", query.Status))
	}

	requests, err := uow.RefundRequestRepository().FindAllWithDetails(ctx, specs...)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindTransient, "failed to list refund requests", err)
	}

	result := make([]*dto.AdminRefundListResponse, 0, len(requests))
	for _, req := range requests {
		result = append(result, &dto.AdminRefundListResponse{
			Id: req.ID,
			User: dto.AdminRefundUserInfo{
				Id:       req.User.ID,
				Email:    req.User.Email,
				FullName: req.User.FullName,
			},
			Order: dto.AdminRefundOrderInfo{
				Id:          req.Order.ID,
				CourseTitle: req.Order.Course.Title,
				FinalPrice:  req.Order.FinalPrice,
				PaidAt:      req.Order.PaidAt,
			},
			SuggestedAmount:    req.SuggestedAmount,
			Reason:             req.Reason,
			ReasonType:         string(req.ReasonType),
			Status:             string(req.Status),
			EligibilityType:    string(req.EligibilityType),
			ProgressPercentage: req.ProgressPercentage,
			AdminNotes:         req.AdminNotes,
			OfferExpiresAt:     req.OfferExpiresAt,
			CreatedAt:          req.CreatedAt,
		})
	}
	return result, nil
}

// ============================================================================
// Decisions
// ============================================================================

func (s *adminService) IssueOffer(ctx context.Context, refundId uuid.UUID, req dto.AdminOfferRequest) (*dto.AdminOfferResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	updated, err := s.manager.IssueOffer(ctx, uow, refundId, req.Amount, req.AdminNotes)
	if err != nil {
		return nil, err
	}

	s.notifyLearner(ctx, uow, updated, func(email, courseTitle string) error {
		return s.emailService.SendOfferIssued(email, courseTitle, updated.SuggestedAmount, *updated.OfferExpiresAt)
	})

	return &dto.AdminOfferResponse{
		RefundId:       updated.ID,
		Status:         string(updated.Status),
		OfferedAmount:  updated.SuggestedAmount,
		OfferExpiresAt: *updated.OfferExpiresAt,
	}, nil
}

func (s *adminService) RejectRefund(ctx context.Context, refundId uuid.UUID, req dto.AdminRejectRefundRequest) (*dto.AdminRefundActionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	updated, err := s.manager.AdminReject(ctx, uow, refundId, req.AdminNotes)
	if err != nil {
		return nil, err
	}

	s.notifyLearner(ctx, uow, updated, func(email, courseTitle string) error {
		return s.emailService.SendRequestRejected(email, courseTitle, updated.AdminNotes)
	})

	return &dto.AdminRefundActionResponse{
		RefundId:    updated.ID,
		Status:      string(updated.Status),
		ProcessedAt: s.clock.Now(),
	}, nil
}

// ============================================================================
// Maintenance
// ============================================================================

// SweepExpiredOffers expires every overdue offer. A redis lock keeps
// concurrent sweepers (cron pod plus manual trigger) from doubling up;
// the per-record version check makes the overlap harmless anyway.
func (s *adminService) SweepExpiredOffers(ctx context.Context) (*dto.SweepResponse, error) {
	now := s.clock.Now()

	if s.redisClient != nil {
		acquired, err := s.redisClient.SetNX(ctx, sweepLockKey, now.Format(time.RFC3339), sweepLockTTL).Result()
		if err != nil {
			s.logger.Warn("ADMIN", "Sweep lock check failed, proceeding without lock", map[string]interface{}{
				"error": err.Error(),
			})
		} else if !acquired {
			s.logger.Info("ADMIN", "Sweep skipped, another sweeper holds the lock", nil)
			return &dto.SweepResponse{ExpiredCount: 0, SweptAt: now}, nil
		} else {
			defer s.redisClient.Del(context.Background(), sweepLockKey)
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	count, err := s.manager.SweepExpiredOffers(ctx, uow, now)
	if err != nil {
		return nil, err
	}

	return &dto.SweepResponse{ExpiredCount: count, SweptAt: now}, nil
}

// notifyLearner resolves the learner's email and course title, then runs
// the send in the background. Decision emails never block or fail the
// decision itself.
func (s *adminService) notifyLearner(ctx context.Context, uow unitofwork.UnitOfWork, req *entity.RefundRequest, send func(email, courseTitle string) error) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: req.UserID})
	if err != nil || user == nil {
		s.logger.Warn("ADMIN", "Cannot load learner for decision email", map[string]interface{}{
			"user_id": req.UserID.String(),
		})
		return
	}
	order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: req.OrderID})
	if err != nil || order == nil {
		return
	}

	go func() {
		if err := send(user.Email, order.Course.Title); err != nil {
			s.logger.Error("ADMIN", "Failed to send decision email", map[string]interface{}{
				"error":     err.Error(),
				"refund_id": req.ID.String(),
			})
		}
	}()
}
