package events

import (
	"context"
	"time"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/pkg/logger"
	pkgEvents "courseflow-be/pkg/events"
	pktNats "courseflow-be/pkg/nats"

	"github.com/shopspring/decimal"
)

// Publisher is the status bridge: every refund state transition is
// announced here so downstream systems (notifications, finance) can
// react. Delivery failures are logged, never propagated, because the
// transition itself has already committed.
type Publisher interface {
	PublishRequestSubmitted(ctx context.Context, req *entity.RefundRequest)
	PublishRequestAutoRejected(ctx context.Context, req *entity.RefundRequest)
	PublishOfferIssued(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal, expiresAt time.Time)
	PublishOfferAccepted(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal)
	PublishOfferRejected(ctx context.Context, req *entity.RefundRequest)
	PublishOfferExpired(ctx context.Context, req *entity.RefundRequest)
	PublishRequestCancelled(ctx context.Context, req *entity.RefundRequest)
	PublishRequestRejected(ctx context.Context, req *entity.RefundRequest, notes string)
}

// NatsPublisher implements Publisher on the NATS JetStream bus.
type NatsPublisher struct {
	publisher *pktNats.Publisher
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, req *entity.RefundRequest, extra map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	now := time.Now()
	data := map[string]interface{}{
		"refund_request_id": req.ID,
		"order_id":          req.OrderID,
		"user_id":           req.UserID,
		"status":            string(req.Status),
		"entity_type":       "refund_request",
		"entity_id":         req.ID.String(),
		"occurred_at":       now,
	}
	for k, v := range extra {
		data[k] = v
	}

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: now,
	}

	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("REFUND", "Failed to publish "+eventType+" event", map[string]interface{}{
			"error":             err.Error(),
			"refund_request_id": req.ID.String(),
		})
	}
}

func (p *NatsPublisher) PublishRequestSubmitted(ctx context.Context, req *entity.RefundRequest) {
	p.publish(ctx, "REFUND_REQUESTED", req, map[string]interface{}{
		"reason":           req.Reason,
		"reason_type":      string(req.ReasonType),
		"eligibility_type": string(req.EligibilityType),
		"suggested_amount": req.SuggestedAmount.String(),
	})
}

func (p *NatsPublisher) PublishRequestAutoRejected(ctx context.Context, req *entity.RefundRequest) {
	p.publish(ctx, "REFUND_AUTO_REJECTED", req, map[string]interface{}{
		"reason":      req.Reason,
		"admin_notes": req.AdminNotes,
	})
}

func (p *NatsPublisher) PublishOfferIssued(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal, expiresAt time.Time) {
	p.publish(ctx, "OFFER_ISSUED", req, map[string]interface{}{
		"amount":           amount.String(),
		"offer_expires_at": expiresAt,
		"admin_notes":      req.AdminNotes,
	})
}

func (p *NatsPublisher) PublishOfferAccepted(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal) {
	p.publish(ctx, "OFFER_ACCEPTED", req, map[string]interface{}{
		"amount": amount.String(),
	})
}

func (p *NatsPublisher) PublishOfferRejected(ctx context.Context, req *entity.RefundRequest) {
	p.publish(ctx, "OFFER_REJECTED", req, nil)
}

func (p *NatsPublisher) PublishOfferExpired(ctx context.Context, req *entity.RefundRequest) {
	p.publish(ctx, "OFFER_EXPIRED", req, map[string]interface{}{
		"offer_expires_at": req.OfferExpiresAt,
	})
}

func (p *NatsPublisher) PublishRequestCancelled(ctx context.Context, req *entity.RefundRequest) {
	p.publish(ctx, "REQUEST_CANCELLED", req, nil)
}

func (p *NatsPublisher) PublishRequestRejected(ctx context.Context, req *entity.RefundRequest, notes string) {
	p.publish(ctx, "REFUND_REJECTED", req, map[string]interface{}{
		"admin_notes": notes,
	})
}
