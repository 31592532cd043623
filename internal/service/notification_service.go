package service

import (
	"context"
	"encoding/json"
	"fmt"

	"courseflow-be/internal/model"
	"courseflow-be/internal/pkg/logger"
	"courseflow-be/internal/pkg/mailer"
	"courseflow-be/internal/repository"
	"courseflow-be/internal/repository/specification"
	"courseflow-be/internal/repository/unitofwork"
	"courseflow-be/pkg/events"
	pktNats "courseflow-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// refundEventTexts maps event codes to the learner-facing notification
// copy. Events without an entry are ignored by the consumer.
var refundEventTexts = map[string]struct {
	Title   string
	Message string
}{
	"REFUND_REQUESTED":     {"Refund request received", "We received your refund request and will review it shortly."},
	"REFUND_AUTO_REJECTED": {"Refund request declined", "Your refund request did not meet the refund policy."},
	"OFFER_ISSUED":         {"Refund offer ready", "Our team made you a refund offer. Review it before it expires."},
	"OFFER_ACCEPTED":       {"Refund confirmed", "You accepted the refund offer. The money is on its way."},
	"OFFER_REJECTED":       {"Offer declined", "You declined the refund offer. The request is now closed."},
	"OFFER_EXPIRED":        {"Refund offer expired", "Your refund offer expired before you responded."},
	"REQUEST_CANCELLED":    {"Refund request cancelled", "You cancelled your refund request."},
	"REFUND_REJECTED":      {"Refund request rejected", "Our team reviewed and rejected your refund request."},
}

type NotificationService struct {
	repo         repository.NotificationRepository
	uowFactory   unitofwork.RepositoryFactory
	subscriber   *pktNats.Subscriber
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	uowFactory unitofwork.RepositoryFactory,
	sub *pktNats.Subscriber,
	emailService mailer.IEmailService,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		repo:         repo,
		uowFactory:   uowFactory,
		subscriber:   sub,
		emailService: emailService,
		logger:       log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	// Subscribe to all events with a durable consumer
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.HandleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

// HandleEvent turns a refund lifecycle event into a persisted
// notification row. Returning an error makes NATS redeliver.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	text, known := refundEventTexts[event.EventType()]
	if !known {
		return nil
	}

	payload := event.Payload()
	userID, err := parsePayloadID(payload, "user_id")
	if err != nil {
		s.logger.Warn("NotificationService", fmt.Sprintf("Event %s has no usable user_id", event.EventType()), map[string]interface{}{"error": err.Error()})
		return nil
	}

	notif := model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TypeCode:   event.EventType(),
		EntityType: "refund_request",
		Title:      text.Title,
		Message:    text.Message,
		CreatedAt:  event.Timestamp(),
	}
	if entityID, err := parsePayloadID(payload, "refund_request_id"); err == nil {
		notif.EntityID = &entityID
	}
	if metaJSON, err := json.Marshal(payload); err == nil {
		notif.Metadata = datatypes.JSON(metaJSON)
	}

	if err := s.repo.CreateNotification(ctx, &notif); err != nil {
		s.logger.Error("NotificationService", "Error saving notification", map[string]interface{}{"error": err})
		return err // NATS will retry if we return error
	}

	if event.EventType() == "OFFER_EXPIRED" {
		s.sendExpiryEmail(ctx, userID, payload)
	}

	return nil
}

// sendExpiryEmail covers the one transition no human triggers. Decision
// emails for admin and learner actions are sent at the call sites.
func (s *NotificationService) sendExpiryEmail(ctx context.Context, userID uuid.UUID, payload map[string]interface{}) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userID})
	if err != nil || user == nil {
		return
	}

	courseTitle := ""
	if orderID, err := parsePayloadID(payload, "order_id"); err == nil {
		if order, err := uow.OrderRepository().FindOne(ctx, specification.ByID{ID: orderID}); err == nil && order != nil {
			courseTitle = order.Course.Title
		}
	}

	if err := s.emailService.SendOfferExpired(user.Email, courseTitle); err != nil {
		s.logger.Error("NotificationService", "Failed to send expiry email", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID.String(),
		})
	}
}

// --- Inbox reads (exposed via the notification routes) ---

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, notificationID)
}

// parsePayloadID reads a UUID that may have survived JSON transport as a
// string, or still be a uuid.UUID when delivered in-process.
func parsePayloadID(payload map[string]interface{}, key string) (uuid.UUID, error) {
	switch v := payload[key].(type) {
	case string:
		return uuid.Parse(v)
	case uuid.UUID:
		return v, nil
	default:
		return uuid.Nil, fmt.Errorf("payload field %q is missing or not an id", key)
	}
}
