package events

import (
	"context"
	"encoding/json"
	"time"

	"courseflow-be/internal/entity"
	"courseflow-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChannelPublisher implements Publisher on an in-process watermill
// go-channel bus. Used in development and tests where no NATS server is
// configured; the subjects match the NATS publisher so consumers are
// interchangeable.
type ChannelPublisher struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewChannelPublisher(log logger.ILogger) *ChannelPublisher {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	return &ChannelPublisher{
		pubSub: pubSub,
		logger: log,
	}
}

// Subscribe exposes the underlying bus so the notification consumer can
// attach in-process.
func (p *ChannelPublisher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.pubSub.Subscribe(ctx, topic)
}

func (p *ChannelPublisher) Close() error {
	return p.pubSub.Close()
}

func (p *ChannelPublisher) publish(eventType string, req *entity.RefundRequest, extra map[string]interface{}) {
	data := map[string]interface{}{
		"refund_request_id": req.ID,
		"order_id":          req.OrderID,
		"user_id":           req.UserID,
		"status":            string(req.Status),
		"entity_type":       "refund_request",
		"entity_id":         req.ID.String(),
		"occurred_at":       time.Now(),
	}
	for k, v := range extra {
		data[k] = v
	}

	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("REFUND", "Failed to marshal "+eventType+" event", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", eventType)

	if err := p.pubSub.Publish("events."+eventType, msg); err != nil {
		p.logger.Error("REFUND", "Failed to publish "+eventType+" event", map[string]interface{}{
			"error":             err.Error(),
			"refund_request_id": req.ID.String(),
		})
	}
}

func (p *ChannelPublisher) PublishRequestSubmitted(ctx context.Context, req *entity.RefundRequest) {
	p.publish("REFUND_REQUESTED", req, map[string]interface{}{
		"reason":           req.Reason,
		"reason_type":      string(req.ReasonType),
		"eligibility_type": string(req.EligibilityType),
		"suggested_amount": req.SuggestedAmount.String(),
	})
}

func (p *ChannelPublisher) PublishRequestAutoRejected(ctx context.Context, req *entity.RefundRequest) {
	p.publish("REFUND_AUTO_REJECTED", req, map[string]interface{}{
		"reason":      req.Reason,
		"admin_notes": req.AdminNotes,
	})
}

func (p *ChannelPublisher) PublishOfferIssued(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal, expiresAt time.Time) {
	p.publish("OFFER_ISSUED", req, map[string]interface{}{
		"amount":           amount.String(),
		"offer_expires_at": expiresAt,
		"admin_notes":      req.AdminNotes,
	})
}

func (p *ChannelPublisher) PublishOfferAccepted(ctx context.Context, req *entity.RefundRequest, amount decimal.Decimal) {
	p.publish("OFFER_ACCEPTED", req, map[string]interface{}{
		"amount": amount.String(),
	})
}

func (p *ChannelPublisher) PublishOfferRejected(ctx context.Context, req *entity.RefundRequest) {
	p.publish("OFFER_REJECTED", req, nil)
}

func (p *ChannelPublisher) PublishOfferExpired(ctx context.Context, req *entity.RefundRequest) {
	p.publish("OFFER_EXPIRED", req, map[string]interface{}{
		"offer_expires_at": req.OfferExpiresAt,
	})
}

func (p *ChannelPublisher) PublishRequestCancelled(ctx context.Context, req *entity.RefundRequest) {
	p.publish("REQUEST_CANCELLED", req, nil)
}

func (p *ChannelPublisher) PublishRequestRejected(ctx context.Context, req *entity.RefundRequest, notes string) {
	p.publish("REFUND_REJECTED", req, map[string]interface{}{
		"admin_notes": notes,
	})
}
