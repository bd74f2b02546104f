package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/notification"
	"github.com/asbjj/shop-api/internal/repository"
)

const notifiedTTL = 24 * time.Hour

// NotificationWorker consumes order events and sends the matching emails.
// A redis marker per (order, event) suppresses duplicate sends when a
// message is redelivered after a partial failure.
type NotificationWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	mailer      notification.Mailer
	redisClient *redis.Client
	adminEmail  string
	log         *slog.Logger
	done        chan struct{}
}

func NewNotificationWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	mailer notification.Mailer,
	redisClient *redis.Client,
	adminEmail string,
	log *slog.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		mailer:      mailer,
		redisClient: redisClient,
		adminEmail:  adminEmail,
		log:         log,
		done:        make(chan struct{}),
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(eventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *NotificationWorker) Stop() { close(w.done) }

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event model.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		w.log.Error("unmarshal order event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", event.OrderID, "kind", event.Kind)

	dedupeKey := fmt.Sprintf("order_notified:%s:%s", event.OrderID, event.Kind)
	exists, err := w.redisClient.Exists(ctx, dedupeKey).Result()
	if err != nil {
		log.Error("check dedupe key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("notification already sent, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.notify(ctx, event); err != nil {
		log.Error("send notification failed", "error", err)
		_ = msg.Nack(false, false) // → DLQ
		return
	}

	if err := w.redisClient.Set(ctx, dedupeKey, "1", notifiedTTL).Err(); err != nil {
		log.Error("set dedupe key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("notification sent")
}

func (w *NotificationWorker) notify(ctx context.Context, event model.OrderEvent) error {
	order, err := w.orderRepo.GetByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", event.OrderID)
	}

	subject, body, err := notification.Render(event.Kind, order)
	if err != nil {
		return err
	}

	to := []string{order.CustomerEmail}
	if w.adminEmail != "" {
		to = append(to, w.adminEmail)
	}
	return w.mailer.Send(to, subject, body)
}
