package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/payment"
	"github.com/asbjj/shop-api/internal/repository"
)

var (
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
	ErrWebhookInvalid     = errors.New("webhook payload is missing a payment id")
	ErrUnknownReference   = errors.New("webhook references an unknown order")
)

// PaymentGateway is the outbound surface of the payment processor.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, order *model.Order) (*payment.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*payment.Payment, error)
}

// gatewayStatus maps processor payment states onto ours. Unknown states fall
// back to pending.
var gatewayStatus = map[string]model.PaymentStatus{
	"approved":  model.PaymentStatusPaid,
	"pending":   model.PaymentStatusPending,
	"rejected":  model.PaymentStatusFailed,
	"cancelled": model.PaymentStatusFailed,
	"refunded":  model.PaymentStatusRefunded,
}

// allowedTransitions lists, per target state, the states an order may come
// from. paid and refunded are terminal except for paid→refunded; anything
// not listed is treated as a duplicate or out-of-order delivery and ignored.
var allowedTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPaid:     {model.PaymentStatusPending, model.PaymentStatusFailed},
	model.PaymentStatusFailed:   {model.PaymentStatusPending},
	model.PaymentStatusRefunded: {model.PaymentStatusPaid},
}

type PaymentService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	events    EventPublisher
	log       *slog.Logger
}

func NewPaymentService(orderRepo repository.OrderRepository, gateway PaymentGateway, events EventPublisher, log *slog.Logger) *PaymentService {
	return &PaymentService{orderRepo: orderRepo, gateway: gateway, events: events, log: log}
}

// CreateIntent registers the order with the processor and returns the hosted
// checkout URL. Gateway failures surface as ErrPaymentUnavailable; the order
// stays pending/pending so the customer can retry.
func (s *PaymentService) CreateIntent(ctx context.Context, orderID uuid.UUID) (*dto.PaymentIntentResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	pref, err := s.gateway.CreatePreference(ctx, order)
	if err != nil {
		s.log.Error("create payment preference", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrPaymentUnavailable, err)
	}

	if err := s.orderRepo.SetPreference(ctx, orderID, pref.ID); err != nil {
		return nil, fmt.Errorf("store preference: %w", err)
	}

	return &dto.PaymentIntentResponse{
		PreferenceID:       pref.ID,
		CheckoutURL:        pref.InitPoint,
		SandboxCheckoutURL: pref.SandboxInitPoint,
	}, nil
}

// HandleWebhook reconciles a processor notification against the referenced
// order. The allowed-transition predicate lives in the UPDATE itself, so a
// re-delivered or out-of-order webhook changes zero rows and is acknowledged
// as a no-op; only a real transition to paid publishes the payment-confirmed
// event. The caller must only return 200 after this commits.
func (s *PaymentService) HandleWebhook(ctx context.Context, req dto.WebhookRequest) error {
	if req.Type != "payment" {
		s.log.Info("ignoring webhook", "type", req.Type)
		return nil
	}
	if req.Data.ID == "" {
		return ErrWebhookInvalid
	}

	pmt, err := s.gateway.GetPayment(ctx, req.Data.ID)
	if err != nil {
		s.log.Error("fetch payment", "payment_id", req.Data.ID, "error", err)
		return fmt.Errorf("%w: %s", ErrPaymentUnavailable, err)
	}

	orderID, err := uuid.Parse(pmt.ExternalReference)
	if err != nil {
		s.log.Error("webhook without usable external reference",
			"payment_id", req.Data.ID, "external_reference", pmt.ExternalReference)
		return ErrUnknownReference
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		s.log.Error("webhook for unknown order", "payment_id", req.Data.ID, "order_id", orderID)
		return ErrUnknownReference
	}

	target, ok := gatewayStatus[pmt.Status]
	if !ok {
		target = model.PaymentStatusPending
	}
	if target == model.PaymentStatusPending {
		s.log.Info("payment still pending", "order", order.OrderNumber, "payment_id", req.Data.ID)
		return nil
	}

	applied, err := s.orderRepo.ApplyPaymentTransition(ctx, orderID, target, req.Data.ID, allowedTransitions[target])
	if err != nil {
		return fmt.Errorf("apply payment transition: %w", err)
	}
	if !applied {
		s.log.Info("payment transition skipped",
			"order", order.OrderNumber, "current", order.PaymentStatus, "target", target)
		return nil
	}

	s.log.Info("payment status updated", "order", order.OrderNumber, "status", target)

	if target == model.PaymentStatusPaid {
		if err := s.events.PublishOrderEvent(ctx, model.OrderEvent{
			OrderID: orderID,
			Kind:    model.OrderEventPaymentConfirmed,
		}); err != nil {
			s.log.Error("publish payment confirmed event", "order_id", orderID, "error", err)
		}
	}
	return nil
}
