package bootstrap

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"courseflow-be/internal/config"
	"courseflow-be/internal/controller"
	"courseflow-be/internal/pkg/logger"
	"courseflow-be/internal/pkg/mailer"
	"courseflow-be/internal/repository/implementation"
	"courseflow-be/internal/repository/memory"
	"courseflow-be/internal/repository/unitofwork"
	"courseflow-be/internal/service"
	"courseflow-be/pkg/clock"
	pkgEvents "courseflow-be/pkg/events"
	refundEvents "courseflow-be/pkg/refund/events"
	"courseflow-be/pkg/refund/lifecycle"
	"courseflow-be/pkg/refund/policy"

	pktNats "courseflow-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RefundController       controller.IRefundController
	AdminController        controller.IAdminController
	NotificationController controller.INotificationController

	// Exposed for cmd/sweep and shutdown
	AdminService service.IAdminService
	Logger       logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 3. Refund Domain
	pol := policy.Policy{
		IneligibleProgressPct:    float64(cfg.Refund.IneligibleProgressPct),
		RefundWindowDays:         cfg.Refund.WindowDays,
		FullRefundMaxProgressPct: float64(cfg.Refund.FullRefundMaxProgressPct),
		FullRefundGraceDays:      cfg.Refund.FullRefundGraceDays,
		CurrencyExponent:         int32(cfg.Refund.CurrencyExponent),
	}

	// NATS when available, in-process bus otherwise
	var publisher refundEvents.Publisher
	var channelPub *refundEvents.ChannelPublisher
	if natsPub != nil {
		publisher = refundEvents.NewNatsPublisher(natsPub, sysLogger)
	} else {
		log.Printf("[WARN] NATS unavailable, refund events use the in-process bus")
		channelPub = refundEvents.NewChannelPublisher(sysLogger)
		publisher = channelPub
	}

	manager := lifecycle.NewManager(
		pol,
		time.Duration(cfg.Refund.OfferTTLHours)*time.Hour,
		clock.System(),
		sysLogger,
		publisher,
	)

	eligCache := memory.NewEligibilityCache(time.Duration(cfg.Refund.EligibilityCacheSeconds) * time.Second)

	// 4. Services
	refundService := service.NewRefundService(uowFactory, manager, eligCache, emailService, sysLogger)
	adminService := service.NewAdminService(uowFactory, manager, emailService, rdb, clock.System(), sysLogger)

	// 5. Notification Consumer
	notifLogger := logger.NewIsolatedLogger("logs/notification.log")
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, uowFactory, natsSub, emailService, notifLogger)

	if natsSub != nil {
		go notifService.Start()
	} else if channelPub != nil {
		startChannelConsumer(channelPub, notifService, notifLogger)
	}

	// 6. Controllers
	return &Container{
		RefundController:       controller.NewRefundController(refundService),
		AdminController:        controller.NewAdminController(adminService),
		NotificationController: controller.NewNotificationController(notifService),

		AdminService: adminService,
		Logger:       sysLogger,
	}
}

// refundEventTopics lists every subject the refund publishers emit. The
// go-channel bus has no wildcard subscribe, so the fallback consumer
// attaches to each topic explicitly.
var refundEventTopics = []string{
	"events.REFUND_REQUESTED",
	"events.REFUND_AUTO_REJECTED",
	"events.OFFER_ISSUED",
	"events.OFFER_ACCEPTED",
	"events.OFFER_REJECTED",
	"events.OFFER_EXPIRED",
	"events.REQUEST_CANCELLED",
	"events.REFUND_REJECTED",
}

func startChannelConsumer(bus *refundEvents.ChannelPublisher, notifService *service.NotificationService, log logger.ILogger) {
	ctx := context.Background()
	for _, topic := range refundEventTopics {
		messages, err := bus.Subscribe(ctx, topic)
		if err != nil {
			log.Error("Bootstrap", "Failed to subscribe to in-process topic", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
			continue
		}

		go func() {
			for msg := range messages {
				var payload map[string]interface{}
				if err := json.Unmarshal(msg.Payload, &payload); err != nil {
					log.Error("Bootstrap", "Malformed in-process event payload", map[string]interface{}{"error": err.Error()})
					msg.Ack()
					continue
				}

				evt := pkgEvents.BaseEvent{
					Type:       msg.Metadata.Get("event_type"),
					Data:       payload,
					OccurredAt: time.Now(),
				}
				if err := notifService.HandleEvent(ctx, evt); err != nil {
					msg.Nack()
					continue
				}
				msg.Ack()
			}
		}()
	}
}
