package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"courseflow-be/internal/apperror"
	"courseflow-be/internal/entity"
	"courseflow-be/internal/repository/contract"
	"courseflow-be/internal/repository/specification"
	"courseflow-be/pkg/clock"
	"courseflow-be/pkg/refund/policy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- In-memory fakes ---

type memStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*entity.RefundRequest
	orders   map[uuid.UUID]*entity.Order
	progress map[uuid.UUID]float64 // keyed by user ID, one course per test

	hideActive    bool // simulate the window between duplicate check and insert
	forceConflict bool // next UpdateStatus loses the version race
}

func newMemStore() *memStore {
	return &memStore{
		requests: make(map[uuid.UUID]*entity.RefundRequest),
		orders:   make(map[uuid.UUID]*entity.Order),
		progress: make(map[uuid.UUID]float64),
	}
}

type fakeUow struct {
	store *memStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) RefundRequestRepository() contract.RefundRequestRepository {
	return &fakeRefundRepo{store: u.store}
}

func (u *fakeUow) OrderRepository() contract.OrderRepository {
	return &fakeOrderRepo{store: u.store}
}

func (u *fakeUow) EnrollmentRepository() contract.EnrollmentRepository {
	return &fakeEnrollmentRepo{store: u.store}
}

func (u *fakeUow) UserRepository() contract.UserRepository {
	return nil // not exercised by the manager
}

type fakeRefundRepo struct {
	store *memStore
}

func (r *fakeRefundRepo) Create(ctx context.Context, req *entity.RefundRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !req.Status.IsTerminal() {
		for _, existing := range r.store.requests {
			if existing.OrderID == req.OrderID && !existing.Status.IsTerminal() {
				return contract.ErrDuplicateActive
			}
		}
	}
	cp := *req
	r.store.requests[req.ID] = &cp
	return nil
}

func (r *fakeRefundRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RefundRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if req, found := r.store.requests[byID.ID]; found {
				cp := *req
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeRefundRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundRequest, error) {
	return nil, nil
}

func (r *fakeRefundRepo) FindAllWithDetails(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundRequest, error) {
	return nil, nil
}

func (r *fakeRefundRepo) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*entity.RefundRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.hideActive {
		return nil, nil
	}
	for _, req := range r.store.requests {
		if req.OrderID == orderID && !req.Status.IsTerminal() {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRefundRepo) FindExpiredOffers(ctx context.Context, now time.Time) ([]*entity.RefundRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.RefundRequest
	for _, req := range r.store.requests {
		if req.Status == entity.RequestStatusApproved && req.OfferExpiresAt != nil && !req.OfferExpiresAt.After(now) {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) UpdateStatus(ctx context.Context, id uuid.UUID, upd contract.StatusUpdate, expectedVersion int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.forceConflict {
		r.store.forceConflict = false
		return contract.ErrVersionConflict
	}
	req, found := r.store.requests[id]
	if !found || req.Version != expectedVersion {
		return contract.ErrVersionConflict
	}
	req.Status = upd.Status
	if upd.SuggestedAmount != nil {
		req.SuggestedAmount = *upd.SuggestedAmount
	}
	if upd.AdminNotes != nil {
		req.AdminNotes = *upd.AdminNotes
	}
	if upd.OfferExpiresAt != nil {
		req.OfferExpiresAt = upd.OfferExpiresAt
	}
	req.Version = expectedVersion + 1
	return nil
}

type fakeOrderRepo struct {
	store *memStore
}

func (r *fakeOrderRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if order, found := r.store.orders[byID.ID]; found {
				cp := *order
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if order, found := r.store.orders[id]; found {
		order.PaymentStatus = status
	}
	return nil
}

type fakeEnrollmentRepo struct {
	store *memStore
}

func (r *fakeEnrollmentRepo) GetProgress(ctx context.Context, userID, courseID uuid.UUID) (float64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.progress[userID], nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) record(t string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, t)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

func (p *recordingPublisher) PublishRequestSubmitted(ctx context.Context, req *entity.RefundRequest) {
	p.record("REFUND_REQUESTED")
}
func (p *recordingPublisher) PublishRequestAutoRejected(ctx context.Context, req *entity.RefundRequest) {
	p.record("REFUND_AUTO_REJECTED")
}
func (p *recordingPublisher) PublishOfferIssued(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal, expiresAt time.Time) {
	p.record("OFFER_ISSUED")
}
func (p *recordingPublisher) PublishOfferAccepted(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal) {
	p.record("OFFER_ACCEPTED")
}
func (p *recordingPublisher) PublishOfferRejected(ctx context.Context, req *entity.RefundRequest) {
	p.record("OFFER_REJECTED")
}
func (p *recordingPublisher) PublishOfferExpired(ctx context.Context, req *entity.RefundRequest) {
	p.record("OFFER_EXPIRED")
}
func (p *recordingPublisher) PublishRequestCancelled(ctx context.Context, req *entity.RefundRequest) {
	p.record("REQUEST_CANCELLED")
}
func (p *recordingPublisher) PublishRequestRejected(ctx context.Context, req *entity.RefundRequest, notes string) {
	p.record("REFUND_REJECTED")
}

// --- Test env ---

type testEnv struct {
	manager *Manager
	store   *memStore
	uow     *fakeUow
	pub     *recordingPublisher
	clock   *clock.Fixed
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	clk := &clock.Fixed{Instant: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mgr := NewManager(policy.Default(), 48*time.Hour, clk, nopLogger{}, pub)
	return &testEnv{
		manager: mgr,
		store:   store,
		uow:     &fakeUow{store: store},
		pub:     pub,
		clock:   clk,
	}
}

// seedOrder creates a PAID order paid agoDays before the fixed clock.
func (e *testEnv) seedOrder(price int64, agoDays int, progress float64) *entity.Order {
	paidAt := e.clock.Instant.Add(-time.Duration(agoDays) * 24 * time.Hour)
	order := &entity.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		CourseID:      uuid.New(),
		FinalPrice:    decimal.NewFromInt(price),
		PaymentStatus: entity.PaymentStatusPaid,
		PaidAt:        &paidAt,
	}
	e.store.orders[order.ID] = order
	e.store.progress[order.UserID] = progress
	return order
}

func (e *testEnv) submit(t *testing.T, order *entity.Order) *entity.RefundRequest {
	t.Helper()
	res, err := e.manager.CreateRequest(context.Background(), e.uow, CreateInput{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Reason:     "the course content is not what I expected",
		ReasonType: entity.ReasonTypeDissatisfaction,
	})
	require.NoError(t, err)
	require.False(t, res.AutoRejected)
	return res.Request
}

func (e *testEnv) storedRequest(id uuid.UUID) *entity.RefundRequest {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	cp := *e.store.requests[id]
	return &cp
}

func (e *testEnv) storedOrder(id uuid.UUID) *entity.Order {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	cp := *e.store.orders[id]
	return &cp
}

// --- Creation ---

func TestCreateRequestFullRefund(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 3)

	req := env.submit(t, order)

	assert.Equal(t, entity.RequestStatusPending, req.Status)
	assert.Equal(t, entity.EligibilityFull, req.EligibilityType)
	assert.True(t, req.SuggestedAmount.Equal(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, 3.0, req.ProgressPercentage)
	assert.Equal(t, entity.PaymentStatusRefundPending, env.storedOrder(order.ID).PaymentStatus)
	assert.Contains(t, env.pub.published(), "REFUND_REQUESTED")
}

func TestCreateRequestAutoRejected(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 60)

	res, err := env.manager.CreateRequest(context.Background(), env.uow, CreateInput{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Reason:     "I changed my mind about this course",
		ReasonType: entity.ReasonTypeOther,
	})
	require.NoError(t, err)

	assert.True(t, res.AutoRejected)
	assert.NotEmpty(t, res.Message)

	stored := env.storedRequest(res.Request.ID)
	assert.Equal(t, entity.RequestStatusRejected, stored.Status)
	assert.Equal(t, res.Message, stored.AdminNotes)
	assert.Empty(t, stored.EligibilityType)
	// The order never entered the refund pipeline
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(order.ID).PaymentStatus)
	assert.Contains(t, env.pub.published(), "REFUND_AUTO_REJECTED")
}

func TestCreateRequestReasonLength(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)

	_, err := env.manager.CreateRequest(context.Background(), env.uow, CreateInput{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Reason:     "too short",
		ReasonType: entity.ReasonTypeOther,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidReason))
	assert.Empty(t, env.store.requests)
}

func TestCreateRequestOrderNotRefundable(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	order.PaymentStatus = entity.PaymentStatusPending

	_, err := env.manager.CreateRequest(context.Background(), env.uow, CreateInput{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Reason:     "I would like my money back please",
		ReasonType: entity.ReasonTypeFinancialEmergency,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotEligibleOrder))
}

func TestCreateRequestRefundFailedOrderIsRefundable(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	order.PaymentStatus = entity.PaymentStatusRefundFailed

	req := env.submit(t, order)
	assert.Equal(t, entity.RequestStatusPending, req.Status)
}

func TestCreateRequestDuplicate(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	env.submit(t, order)

	_, err := env.manager.CreateRequest(context.Background(), env.uow, CreateInput{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Reason:     "submitting again just to be sure",
		ReasonType: entity.ReasonTypeOther,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindDuplicateRequest))
}

func TestCreateRequestDuplicateRace(t *testing.T) {
	// Two near-simultaneous submissions: the second reads the pre-commit
	// snapshot (order still PAID, no active request visible) and passes
	// every check, but the unique index rejects its insert.
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	env.submit(t, order)

	env.store.hideActive = true
	order.PaymentStatus = entity.PaymentStatusPaid
	_, err := env.manager.CreateRequest(context.Background(), env.uow, CreateInput{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Reason:     "racing submission for the same order",
		ReasonType: entity.ReasonTypeOther,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindDuplicateRequest))
}

func TestCreateRequestAfterTerminalAllowed(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	first := env.submit(t, order)

	_, err := env.manager.CancelRequest(context.Background(), env.uow, order.UserID, first.ID)
	require.NoError(t, err)

	second := env.submit(t, order)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, entity.RequestStatusPending, second.Status)
}

// --- Eligibility preview ---

func TestGetEligibilityDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 10, 25)

	preview, err := env.manager.GetEligibility(context.Background(), env.uow, order.UserID, order.ID)
	require.NoError(t, err)

	assert.True(t, preview.Eligible)
	assert.Equal(t, entity.EligibilityPartial, preview.Type)
	assert.True(t, preview.SuggestedAmount.Equal(decimal.NewFromInt(500_000)))
	assert.Empty(t, env.store.requests)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(order.ID).PaymentStatus)
}

// --- Offers ---

func TestIssueOffer(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	updated, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "partial refund based on consumed content")
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusApproved, updated.Status)
	assert.True(t, updated.SuggestedAmount.Equal(decimal.NewFromInt(600_000)))
	require.NotNil(t, updated.OfferExpiresAt)
	assert.Equal(t, env.clock.Instant.Add(48*time.Hour), *updated.OfferExpiresAt)
	assert.Contains(t, env.pub.published(), "OFFER_ISSUED")
}

func TestIssueOfferInvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(1_000_001), "more than was paid")
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidAmount))

	_, err = env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(-1), "negative")
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidAmount))

	// Fields untouched after the failed calls
	stored := env.storedRequest(req.ID)
	assert.Equal(t, entity.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.OfferExpiresAt)
}

// The bounds check rounds on the currency's minor unit, so in a
// two-decimal currency an offer of 100.49 against a 100.00 order is
// over the price, not equal to it.
func TestIssueOfferBoundsUseCurrencyMinorUnit(t *testing.T) {
	env := newTestEnv(t)
	pol := policy.Default()
	pol.CurrencyExponent = 2
	env.manager = NewManager(pol, 48*time.Hour, env.clock, nopLogger{}, env.pub)

	order := env.seedOrder(100, 2, 10)
	order.FinalPrice = decimal.RequireFromString("100.00")
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.RequireFromString("100.49"), "just over the price")
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidAmount))

	_, err = env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.RequireFromString("100.001"), "rounds onto the full price")
	require.NoError(t, err)
}

func TestIssueOfferRequiresPending(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "first offer")
	require.NoError(t, err)

	_, err = env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(700_000), "second offer")
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
}

// Even when the admin offers exactly the suggested amount, the learner
// must still accept explicitly; there is no auto-accept shortcut.
func TestIssueOfferMatchingSuggestionStillNeedsAcceptance(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 3)
	req := env.submit(t, order)

	updated, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		req.SuggestedAmount, "full refund as suggested")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusApproved, updated.Status)
	assert.NotEqual(t, entity.RequestStatusCompleted, updated.Status)
}

func TestAcceptOfferFullRefund(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 3)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(1_000_000), "full refund")
	require.NoError(t, err)

	accepted, err := env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusCompleted, accepted.Status)
	assert.Equal(t, entity.PaymentStatusRefunded, env.storedOrder(order.ID).PaymentStatus)
	assert.Contains(t, env.pub.published(), "OFFER_ACCEPTED")
}

func TestAcceptOfferPartialRefund(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "partial")
	require.NoError(t, err)

	_, err = env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusPartiallyRefunded, env.storedOrder(order.ID).PaymentStatus)
}

func TestAcceptOfferExpired(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "partial")
	require.NoError(t, err)

	env.clock.Advance(49 * time.Hour)

	_, err = env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindOfferExpired))

	// The failed call transitioned the record opportunistically
	stored := env.storedRequest(req.ID)
	assert.Equal(t, entity.RequestStatusExpired, stored.Status)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(order.ID).PaymentStatus)
	assert.Contains(t, env.pub.published(), "OFFER_EXPIRED")
}

func TestAcceptOfferExactDeadlineIsExpired(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "partial")
	require.NoError(t, err)

	env.clock.Advance(48 * time.Hour) // now == offerExpiresAt

	_, err = env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindOfferExpired))
}

func TestRejectOffer(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "partial")
	require.NoError(t, err)

	rejected, err := env.manager.RejectOffer(context.Background(), env.uow, order.UserID, req.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusRejected, rejected.Status)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(order.ID).PaymentStatus)
	assert.Contains(t, env.pub.published(), "OFFER_REJECTED")
}

func TestAcceptOfferWrongUser(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "partial")
	require.NoError(t, err)

	_, err = env.manager.AcceptOffer(context.Background(), env.uow, uuid.New(), req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

// --- Cancellation and admin rejection ---

func TestCancelRequest(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	req := env.submit(t, order)

	cancelled, err := env.manager.CancelRequest(context.Background(), env.uow, order.UserID, req.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusCancelled, cancelled.Status)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(order.ID).PaymentStatus)
	assert.Contains(t, env.pub.published(), "REQUEST_CANCELLED")
}

func TestCancelRequestRequiresPending(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(400_000), "offer")
	require.NoError(t, err)

	_, err = env.manager.CancelRequest(context.Background(), env.uow, order.UserID, req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
}

func TestAdminReject(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(500_000, 1, 0)
	req := env.submit(t, order)

	rejected, err := env.manager.AdminReject(context.Background(), env.uow, req.ID,
		"refund policy does not cover this case")
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "refund policy does not cover this case", rejected.AdminNotes)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(order.ID).PaymentStatus)
}

// --- State machine conformance ---

func TestIllegalTransitionsFail(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	// Accept/reject on a PENDING request (no offer yet)
	_, err := env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
	_, err = env.manager.RejectOffer(context.Background(), env.uow, order.UserID, req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))

	// Drive to COMPLETED and verify the terminal state is frozen
	_, err = env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "offer")
	require.NoError(t, err)
	_, err = env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	require.NoError(t, err)

	before := env.storedRequest(req.ID)
	for _, attempt := range []func() error{
		func() error {
			_, e := env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
			return e
		},
		func() error {
			_, e := env.manager.CancelRequest(context.Background(), env.uow, order.UserID, req.ID)
			return e
		},
		func() error {
			_, e := env.manager.IssueOffer(context.Background(), env.uow, req.ID, decimal.NewFromInt(1), "n")
			return e
		},
		func() error {
			_, e := env.manager.AdminReject(context.Background(), env.uow, req.ID, "n")
			return e
		},
	} {
		err := attempt()
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
	}
	assert.Equal(t, before, env.storedRequest(req.ID))
}

func TestConcurrentTransitionLoserSeesInvalidState(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)

	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID,
		decimal.NewFromInt(600_000), "offer")
	require.NoError(t, err)

	env.store.forceConflict = true
	_, err = env.manager.AcceptOffer(context.Background(), env.uow, order.UserID, req.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
}

// --- Sweep ---

func TestSweepExpiredOffers(t *testing.T) {
	env := newTestEnv(t)

	staleA := env.seedOrder(1_000_000, 2, 10)
	staleB := env.seedOrder(800_000, 3, 20)
	live := env.seedOrder(600_000, 1, 5)

	reqA := env.submit(t, staleA)
	reqB := env.submit(t, staleB)
	_, err := env.manager.IssueOffer(context.Background(), env.uow, reqA.ID, decimal.NewFromInt(500_000), "a")
	require.NoError(t, err)
	_, err = env.manager.IssueOffer(context.Background(), env.uow, reqB.ID, decimal.NewFromInt(400_000), "b")
	require.NoError(t, err)

	env.clock.Advance(50 * time.Hour)

	reqLive := env.submit(t, live)
	_, err = env.manager.IssueOffer(context.Background(), env.uow, reqLive.ID, decimal.NewFromInt(300_000), "c")
	require.NoError(t, err)

	count, err := env.manager.SweepExpiredOffers(context.Background(), env.uow, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, entity.RequestStatusExpired, env.storedRequest(reqA.ID).Status)
	assert.Equal(t, entity.RequestStatusExpired, env.storedRequest(reqB.ID).Status)
	assert.Equal(t, entity.RequestStatusApproved, env.storedRequest(reqLive.ID).Status)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(staleA.ID).PaymentStatus)
	assert.Equal(t, entity.PaymentStatusPaid, env.storedOrder(staleB.ID).PaymentStatus)
	assert.Equal(t, entity.PaymentStatusRefundPending, env.storedOrder(live.ID).PaymentStatus)
}

func TestSweepIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)
	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID, decimal.NewFromInt(500_000), "a")
	require.NoError(t, err)

	env.clock.Advance(72 * time.Hour)

	first, err := env.manager.SweepExpiredOffers(context.Background(), env.uow, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	afterFirst := env.storedRequest(req.ID)

	second, err := env.manager.SweepExpiredOffers(context.Background(), env.uow, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Equal(t, afterFirst, env.storedRequest(req.ID))
}

func TestSweepSkipsRecordsWonByLearner(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(1_000_000, 2, 10)
	req := env.submit(t, order)
	_, err := env.manager.IssueOffer(context.Background(), env.uow, req.ID, decimal.NewFromInt(500_000), "a")
	require.NoError(t, err)

	env.clock.Advance(72 * time.Hour)

	env.store.forceConflict = true
	count, err := env.manager.SweepExpiredOffers(context.Background(), env.uow, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
