package lifecycle

import (
	"context"
	"time"

	"courseflow-be/internal/apperror"
	"courseflow-be/internal/entity"
	"courseflow-be/internal/pkg/logger"
	"courseflow-be/internal/repository/contract"
	"courseflow-be/internal/repository/specification"
	"courseflow-be/internal/repository/unitofwork"
	refundEvents "courseflow-be/pkg/refund/events"
	"courseflow-be/pkg/refund/policy"

	"courseflow-be/pkg/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minReasonLen = 10
	maxReasonLen = 1000
)

// Manager is the refund request state machine. It is the only component
// allowed to change a request's status; every transition runs inside a
// transaction guarded by an optimistic version check, so two concurrent
// actions on the same request resolve to exactly one winner.
type Manager struct {
	policy    policy.Policy
	offerTTL  time.Duration
	clock     clock.Clock
	logger    logger.ILogger
	publisher refundEvents.Publisher
}

// NewManager creates a lifecycle manager. offerTTL is how long a learner
// has to decide on an admin counter-offer (48h by default policy).
func NewManager(pol policy.Policy, offerTTL time.Duration, clk clock.Clock, log logger.ILogger, publisher refundEvents.Publisher) *Manager {
	return &Manager{
		policy:    pol,
		offerTTL:  offerTTL,
		clock:     clk,
		logger:    log,
		publisher: publisher,
	}
}

// CreateInput is a learner's refund submission.
type CreateInput struct {
	OrderID    uuid.UUID
	UserID     uuid.UUID
	Reason     string
	ReasonType entity.ReasonType
}

// CreateResult distinguishes "accepted into review" from "processed and
// denied". An auto-rejection is a successful creation, not an error: the
// record lands directly in REJECTED with the policy's explanation.
type CreateResult struct {
	Request      *entity.RefundRequest
	AutoRejected bool
	Message      string
}

// EligibilityPreview is the read-only answer to "what would happen if I
// asked for a refund right now". Nothing is persisted.
type EligibilityPreview struct {
	OrderID            uuid.UUID
	Eligible           bool
	Type               entity.EligibilityType
	SuggestedAmount    decimal.Decimal
	Message            string
	ProgressPercentage float64
	OrderAgeDays       int
}

// CreateRequest submits a refund request for an order.
func (m *Manager) CreateRequest(ctx context.Context, uow unitofwork.UnitOfWork, in CreateInput) (*CreateResult, error) {
	// 1. Validate the reason before touching storage
	if len(in.Reason) < minReasonLen || len(in.Reason) > maxReasonLen {
		return nil, apperror.Newf(apperror.KindInvalidReason,
			"reason must be between %d and %d characters", minReasonLen, maxReasonLen)
	}

	// 2. Load the order and check ownership
	order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: in.OrderID})
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if order == nil || order.UserID != in.UserID {
		return nil, apperror.New(apperror.KindNotFound, "order not found")
	}

	// 3. Reject duplicates before the payment precondition: an active
	// request is what holds the order in REFUND_PENDING, so a repeat
	// submission must be answered as a duplicate, not as ineligible.
	// The partial unique index is the authoritative guard, this check
	// just gives a cleaner answer.
	existing, err := uow.RefundRequestRepository().FindActiveByOrder(ctx, in.OrderID)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if existing != nil {
		return nil, apperror.New(apperror.KindDuplicateRequest,
			"a refund request for this order is already being processed")
	}

	// 4. Payment precondition
	if !order.Refundable() {
		return nil, apperror.Newf(apperror.KindNotEligibleOrder,
			"order cannot be refunded while its payment status is %s", order.PaymentStatus)
	}
	if order.PaidAt == nil {
		return nil, apperror.New(apperror.KindNotEligibleOrder, "order has no recorded payment")
	}

	// 5. Snapshot progress and evaluate the policy
	progress, err := uow.EnrollmentRepository().GetProgress(ctx, order.UserID, order.CourseID)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	now := m.clock.Now()
	verdict := m.policy.Evaluate(order.AgeDays(now), progress, order.FinalPrice)

	req := &entity.RefundRequest{
		ID:                 uuid.New(),
		OrderID:            in.OrderID,
		UserID:             in.UserID,
		Reason:             in.Reason,
		ReasonType:         in.ReasonType,
		ProgressPercentage: progress,
		SuggestedAmount:    decimal.Zero,
	}

	// 6a. Ineligible: record the denial with the policy's explanation.
	// The order keeps its current status; nothing was ever pending.
	if !verdict.Eligible {
		req.Status = entity.RequestStatusRejected
		req.AdminNotes = verdict.Message

		if err := uow.RefundRequestRepository().Create(ctx, req); err != nil {
			return nil, apperror.Transient(err)
		}

		m.logger.Info("REFUND", "Auto-rejected refund request", map[string]interface{}{
			"requestId": req.ID.String(),
			"orderId":   in.OrderID.String(),
			"progress":  progress,
			"message":   verdict.Message,
		})
		m.publisher.PublishRequestAutoRejected(ctx, req)

		return &CreateResult{Request: req, AutoRejected: true, Message: verdict.Message}, nil
	}

	// 6b. Eligible: create PENDING and flip the order, atomically
	req.Status = entity.RequestStatusPending
	req.EligibilityType = verdict.Type
	req.SuggestedAmount = verdict.SuggestedAmount

	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Transient(err)
	}
	defer uow.Rollback()

	if err := uow.RefundRequestRepository().Create(ctx, req); err != nil {
		if err == contract.ErrDuplicateActive {
			return nil, apperror.New(apperror.KindDuplicateRequest,
				"a refund request for this order is already being processed")
		}
		return nil, apperror.Transient(err)
	}
	if err := uow.OrderRepository().UpdatePaymentStatus(ctx, order.ID, entity.PaymentStatusRefundPending); err != nil {
		return nil, apperror.Transient(err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Transient(err)
	}

	m.logger.Info("REFUND", "Created refund request", map[string]interface{}{
		"requestId":       req.ID.String(),
		"orderId":         in.OrderID.String(),
		"eligibilityType": string(verdict.Type),
		"suggestedAmount": verdict.SuggestedAmount.String(),
	})
	m.publisher.PublishRequestSubmitted(ctx, req)

	return &CreateResult{Request: req, Message: verdict.Message}, nil
}

// GetEligibility previews the policy verdict for an order without
// creating anything.
func (m *Manager) GetEligibility(ctx context.Context, uow unitofwork.UnitOfWork, userID, orderID uuid.UUID) (*EligibilityPreview, error) {
	order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: orderID})
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if order == nil || (userID != uuid.Nil && order.UserID != userID) {
		return nil, apperror.New(apperror.KindNotFound, "order not found")
	}
	if !order.Refundable() {
		return &EligibilityPreview{
			OrderID: orderID,
			Message: "order cannot be refunded while its payment status is " + string(order.PaymentStatus),
		}, nil
	}
	if order.PaidAt == nil {
		return &EligibilityPreview{OrderID: orderID, Message: "order has no recorded payment"}, nil
	}

	progress, err := uow.EnrollmentRepository().GetProgress(ctx, order.UserID, order.CourseID)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	ageDays := order.AgeDays(m.clock.Now())
	verdict := m.policy.Evaluate(ageDays, progress, order.FinalPrice)

	return &EligibilityPreview{
		OrderID:            orderID,
		Eligible:           verdict.Eligible,
		Type:               verdict.Type,
		SuggestedAmount:    verdict.SuggestedAmount,
		Message:            verdict.Message,
		ProgressPercentage: progress,
		OrderAgeDays:       ageDays,
	}, nil
}

// IssueOffer turns a PENDING request into an APPROVED counter-offer with
// a decision deadline. Admin only.
func (m *Manager) IssueOffer(ctx context.Context, uow unitofwork.UnitOfWork, requestID uuid.UUID, amount decimal.Decimal, notes string) (*entity.RefundRequest, error) {
	req, err := m.findRequest(ctx, uow, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusPending {
		return nil, apperror.Newf(apperror.KindInvalidState,
			"an offer can only be issued on a PENDING request, current status is %s", req.Status)
	}

	order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: req.OrderID})
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if order == nil {
		return nil, apperror.New(apperror.KindNotFound, "order not found")
	}
	if amount.IsNegative() || m.policy.RoundMoney(amount).GreaterThan(m.policy.RoundMoney(order.FinalPrice)) {
		return nil, apperror.Newf(apperror.KindInvalidAmount,
			"offer amount must be between 0 and the order price of %s", order.FinalPrice)
	}

	expiresAt := m.clock.Now().Add(m.offerTTL)
	if err := m.transition(ctx, uow, req, contract.StatusUpdate{
		Status:          entity.RequestStatusApproved,
		SuggestedAmount: &amount,
		AdminNotes:      &notes,
		OfferExpiresAt:  &expiresAt,
	}, nil); err != nil {
		return nil, err
	}

	req.Status = entity.RequestStatusApproved
	req.SuggestedAmount = amount
	req.AdminNotes = notes
	req.OfferExpiresAt = &expiresAt
	req.Version++

	m.logger.Info("REFUND", "Issued refund offer", map[string]interface{}{
		"requestId": req.ID.String(),
		"amount":    amount.String(),
		"expiresAt": expiresAt,
	})
	m.publisher.PublishOfferIssued(ctx, req, amount, expiresAt)

	return req, nil
}

// AdminReject denies a PENDING request and reverts the order to PAID.
func (m *Manager) AdminReject(ctx context.Context, uow unitofwork.UnitOfWork, requestID uuid.UUID, notes string) (*entity.RefundRequest, error) {
	req, err := m.findRequest(ctx, uow, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusPending {
		return nil, apperror.Newf(apperror.KindInvalidState,
			"only a PENDING request can be rejected, current status is %s", req.Status)
	}

	if err := m.transition(ctx, uow, req, contract.StatusUpdate{
		Status:     entity.RequestStatusRejected,
		AdminNotes: &notes,
	}, orderStatusPtr(entity.PaymentStatusPaid)); err != nil {
		return nil, err
	}

	req.Status = entity.RequestStatusRejected
	req.AdminNotes = notes
	req.Version++

	m.logger.Info("REFUND", "Rejected refund request", map[string]interface{}{
		"requestId":  req.ID.String(),
		"adminNotes": notes,
	})
	m.publisher.PublishRequestRejected(ctx, req, notes)

	return req, nil
}

// AcceptOffer completes the refund. The order ends up REFUNDED when the
// offered amount equals the full price on the minor unit, otherwise
// PARTIALLY_REFUNDED.
func (m *Manager) AcceptOffer(ctx context.Context, uow unitofwork.UnitOfWork, userID, requestID uuid.UUID) (*entity.RefundRequest, error) {
	req, err := m.findOwnedRequest(ctx, uow, userID, requestID)
	if err != nil {
		return nil, err
	}
	if err := m.checkOpenOffer(ctx, uow, req); err != nil {
		return nil, err
	}

	order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: req.OrderID})
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if order == nil {
		return nil, apperror.New(apperror.KindNotFound, "order not found")
	}

	finalStatus := entity.PaymentStatusPartiallyRefunded
	if m.policy.SameAmount(req.SuggestedAmount, order.FinalPrice) {
		finalStatus = entity.PaymentStatusRefunded
	}

	if err := m.transition(ctx, uow, req, contract.StatusUpdate{
		Status: entity.RequestStatusCompleted,
	}, &finalStatus); err != nil {
		return nil, err
	}

	req.Status = entity.RequestStatusCompleted
	req.Version++

	m.logger.Info("REFUND", "Learner accepted refund offer", map[string]interface{}{
		"requestId":   req.ID.String(),
		"amount":      req.SuggestedAmount.String(),
		"orderStatus": string(finalStatus),
	})
	m.publisher.PublishOfferAccepted(ctx, req, req.SuggestedAmount)

	return req, nil
}

// RejectOffer declines the admin's counter-offer; the refund does not
// happen and the order reverts to PAID.
func (m *Manager) RejectOffer(ctx context.Context, uow unitofwork.UnitOfWork, userID, requestID uuid.UUID) (*entity.RefundRequest, error) {
	req, err := m.findOwnedRequest(ctx, uow, userID, requestID)
	if err != nil {
		return nil, err
	}
	if err := m.checkOpenOffer(ctx, uow, req); err != nil {
		return nil, err
	}

	if err := m.transition(ctx, uow, req, contract.StatusUpdate{
		Status: entity.RequestStatusRejected,
	}, orderStatusPtr(entity.PaymentStatusPaid)); err != nil {
		return nil, err
	}

	req.Status = entity.RequestStatusRejected
	req.Version++

	m.logger.Info("REFUND", "Learner rejected refund offer", map[string]interface{}{
		"requestId": req.ID.String(),
	})
	m.publisher.PublishOfferRejected(ctx, req)

	return req, nil
}

// CancelRequest withdraws a PENDING request; the order reverts to PAID.
func (m *Manager) CancelRequest(ctx context.Context, uow unitofwork.UnitOfWork, userID, requestID uuid.UUID) (*entity.RefundRequest, error) {
	req, err := m.findOwnedRequest(ctx, uow, userID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusPending {
		return nil, apperror.Newf(apperror.KindInvalidState,
			"only a PENDING request can be cancelled, current status is %s", req.Status)
	}

	if err := m.transition(ctx, uow, req, contract.StatusUpdate{
		Status: entity.RequestStatusCancelled,
	}, orderStatusPtr(entity.PaymentStatusPaid)); err != nil {
		return nil, err
	}

	req.Status = entity.RequestStatusCancelled
	req.Version++

	m.logger.Info("REFUND", "Learner cancelled refund request", map[string]interface{}{
		"requestId": req.ID.String(),
	})
	m.publisher.PublishRequestCancelled(ctx, req)

	return req, nil
}

// SweepExpiredOffers expires every APPROVED request whose deadline has
// passed and reverts the orders to PAID. Safe to re-run: each record is
// guarded by its version, and a concurrent learner action simply wins.
// Returns the number of requests expired.
func (m *Manager) SweepExpiredOffers(ctx context.Context, uow unitofwork.UnitOfWork, now time.Time) (int, error) {
	stale, err := uow.RefundRequestRepository().FindExpiredOffers(ctx, now)
	if err != nil {
		return 0, apperror.Transient(err)
	}

	expired := 0
	for _, req := range stale {
		if err := m.expireOffer(ctx, uow, req); err != nil {
			if apperror.IsKind(err, apperror.KindInvalidState) {
				// Lost the race to a learner accept/reject; nothing to do.
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		m.logger.Info("REFUND", "Swept expired refund offers", map[string]interface{}{
			"count": expired,
			"asOf":  now,
		})
	}
	return expired, nil
}

// checkOpenOffer validates that req carries a live admin offer. A stale
// offer is expired on the spot before OfferExpired is returned, so a
// learner hitting the deadline leaves the record in its true state.
func (m *Manager) checkOpenOffer(ctx context.Context, uow unitofwork.UnitOfWork, req *entity.RefundRequest) error {
	if req.Status != entity.RequestStatusApproved || req.OfferExpiresAt == nil {
		return apperror.Newf(apperror.KindInvalidState,
			"no open offer on this request, current status is %s", req.Status)
	}
	if !m.clock.Now().Before(*req.OfferExpiresAt) {
		if err := m.expireOffer(ctx, uow, req); err != nil && !apperror.IsKind(err, apperror.KindInvalidState) {
			return err
		}
		return apperror.New(apperror.KindOfferExpired,
			"the offer deadline has passed; the request has been marked expired")
	}
	return nil
}

func (m *Manager) expireOffer(ctx context.Context, uow unitofwork.UnitOfWork, req *entity.RefundRequest) error {
	if err := m.transition(ctx, uow, req, contract.StatusUpdate{
		Status: entity.RequestStatusExpired,
	}, orderStatusPtr(entity.PaymentStatusPaid)); err != nil {
		return err
	}

	req.Status = entity.RequestStatusExpired
	req.Version++
	m.publisher.PublishOfferExpired(ctx, req)
	return nil
}

// transition applies a status change and an optional order status flip
// in one transaction, guarded by the request's version. A version
// conflict means a concurrent actor already moved the record; callers
// see that as InvalidState per the single-winner rule.
func (m *Manager) transition(ctx context.Context, uow unitofwork.UnitOfWork, req *entity.RefundRequest, upd contract.StatusUpdate, orderStatus *entity.PaymentStatus) error {
	if err := uow.Begin(ctx); err != nil {
		return apperror.Transient(err)
	}
	defer uow.Rollback()

	if err := uow.RefundRequestRepository().UpdateStatus(ctx, req.ID, upd, req.Version); err != nil {
		if err == contract.ErrVersionConflict {
			return apperror.New(apperror.KindInvalidState,
				"the request was modified concurrently, reload and try again")
		}
		return apperror.Transient(err)
	}
	if orderStatus != nil {
		if err := uow.OrderRepository().UpdatePaymentStatus(ctx, req.OrderID, *orderStatus); err != nil {
			return apperror.Transient(err)
		}
	}
	if err := uow.Commit(); err != nil {
		return apperror.Transient(err)
	}
	return nil
}

func (m *Manager) findRequest(ctx context.Context, uow unitofwork.UnitOfWork, requestID uuid.UUID) (*entity.RefundRequest, error) {
	req, err := uow.RefundRequestRepository().FindOne(ctx, specification.ByID{ID: requestID})
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if req == nil {
		return nil, apperror.New(apperror.KindNotFound, "refund request not found")
	}
	return req, nil
}

func (m *Manager) findOwnedRequest(ctx context.Context, uow unitofwork.UnitOfWork, userID, requestID uuid.UUID) (*entity.RefundRequest, error) {
	req, err := m.findRequest(ctx, uow, requestID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil && req.UserID != userID {
		return nil, apperror.New(apperror.KindNotFound, "refund request not found")
	}
	return req, nil
}

func orderStatusPtr(s entity.PaymentStatus) *entity.PaymentStatus {
	return &s
}
