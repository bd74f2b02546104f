package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/repository"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
)

// orderNumberAttempts bounds the retry loop around the random order-number
// suffix; the unique constraint is the arbiter, not a pre-check.
const orderNumberAttempts = 5

// ShippingRater computes the shipping cost for an order subtotal.
type ShippingRater interface {
	Rate(ctx context.Context, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// FlatShipping charges the same configured rate for every order.
type FlatShipping struct{ Cost decimal.Decimal }

func (f FlatShipping) Rate(_ context.Context, _ decimal.Decimal) (decimal.Decimal, error) {
	return f.Cost, nil
}

type CheckoutService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	couponSvc   *CouponService
	shipping    ShippingRater
	events      EventPublisher
	orderPrefix string
	log         *slog.Logger
	now         func() time.Time
}

func NewCheckoutService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	couponSvc *CouponService,
	shipping ShippingRater,
	events EventPublisher,
	orderPrefix string,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		couponSvc:   couponSvc,
		shipping:    shipping,
		events:      events,
		orderPrefix: orderPrefix,
		log:         log,
		now:         time.Now,
	}
}

// PlaceOrder snapshots the session's cart into an immutable order. Order
// insert, item inserts, coupon redemption and cart clearing commit as one
// transaction; a failure at any point leaves everything untouched.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionToken string, req dto.CheckoutRequest) (*model.Order, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart, err = s.cartRepo.GetWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if cart == nil || cart.TotalItems() == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := cart.TotalPrice()

	var (
		discount   = decimal.Zero
		couponID   *uuid.UUID
		couponCode *string
	)
	if req.CouponCode != "" {
		coupon, err := s.couponSvc.Validate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount = coupon.DiscountFor(subtotal, s.now())
		couponID = &coupon.ID
		couponCode = &coupon.Code
	}

	shippingCost, err := s.shipping.Rate(ctx, subtotal)
	if err != nil {
		return nil, fmt.Errorf("rate shipping: %w", err)
	}

	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		items = append(items, model.OrderItem{
			ProductID:   ci.ProductID,
			ProductName: ci.ProductName,
			Quantity:    ci.Quantity,
			Price:       ci.UnitPrice,
			TotalPrice:  ci.UnitPrice.Mul(decimalFromInt(ci.Quantity)),
		})
	}

	order := &model.Order{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingState:   req.ShippingState,
		ShippingZipCode: req.ShippingZipCode,
		Subtotal:        subtotal,
		Discount:        discount,
		CouponCode:      couponCode,
		ShippingCost:    shippingCost,
		Total:           subtotal.Sub(discount).Add(shippingCost),
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		PaymentMethod:   model.PaymentMethod(req.PaymentMethod),
		Notes:           req.Notes,
		Items:           items,
	}

	for attempt := 0; ; attempt++ {
		order.OrderNumber = s.newOrderNumber()
		err = s.orderRepo.Checkout(ctx, order, cart.ID, couponID)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrOrderNumberTaken) && attempt < orderNumberAttempts-1 {
			continue
		}
		if errors.Is(err, repository.ErrCouponExhausted) {
			return nil, ErrCouponLimitReached
		}
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if err := s.events.PublishOrderEvent(ctx, model.OrderEvent{
		OrderID: order.ID,
		Kind:    model.OrderEventConfirmation,
	}); err != nil {
		s.log.Error("publish order confirmation event", "order_id", order.ID, "error", err)
	}

	return order, nil
}

func (s *CheckoutService) GetByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) List(ctx context.Context, limit, offset int) ([]model.Order, int, error) {
	return s.orderRepo.List(ctx, limit, offset)
}

// statusChain defines the only forward moves for fulfilment status.
// Cancellation is allowed until the order ships.
var statusChain = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed:  {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
}

var ErrInvalidStatusChange = errors.New("invalid order status change")

// UpdateStatus advances the fulfilment status along the defined chain and
// publishes shipment and delivery events.
func (s *CheckoutService) UpdateStatus(ctx context.Context, orderID uuid.UUID, target model.OrderStatus) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range statusChain[order.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidStatusChange
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, target); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	order.Status = target

	var kind model.OrderEventKind
	switch target {
	case model.OrderStatusShipped:
		kind = model.OrderEventShipped
	case model.OrderStatusDelivered:
		kind = model.OrderEventDelivered
	default:
		return order, nil
	}
	if err := s.events.PublishOrderEvent(ctx, model.OrderEvent{OrderID: orderID, Kind: kind}); err != nil {
		s.log.Error("publish order event", "order_id", orderID, "kind", kind, "error", err)
	}
	return order, nil
}

// newOrderNumber builds PREFIX-YYYYMMDD-NNNN with a random 4-digit suffix.
// Uniqueness is enforced by the database; PlaceOrder retries on conflict.
func (s *CheckoutService) newOrderNumber() string {
	return fmt.Sprintf("%s-%s-%04d", s.orderPrefix, s.now().Format("20060102"), rand.Intn(10000))
}

func ToOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			TotalPrice:  item.TotalPrice,
		})
	}
	return dto.OrderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		CouponCode:    order.CouponCode,
		ShippingCost:  order.ShippingCost,
		Total:         order.Total,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Items:         items,
		CreatedAt:     order.CreatedAt,
	}
}
