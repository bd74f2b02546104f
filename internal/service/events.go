package service

import (
	"context"

	"github.com/asbjj/shop-api/internal/model"
)

// EventPublisher hands order events to the notification pipeline. Publishing
// is fire-and-forget from the caller's point of view: failures are logged,
// never propagated into the triggering transaction.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event model.OrderEvent) error
}
