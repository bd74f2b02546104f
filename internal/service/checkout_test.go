package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/repository"
)

type mockOrderRepo struct {
	orders   map[uuid.UUID]*model.Order
	numbers  map[string]bool
	cartRepo *mockCartRepo

	// conflicts makes the next n Checkout calls fail with ErrOrderNumberTaken.
	conflicts int
	// exhaustCoupon makes redemption fail as if the usage limit was hit
	// between validation and commit.
	exhaustCoupon bool
}

func newMockOrderRepo(cartRepo *mockCartRepo) *mockOrderRepo {
	return &mockOrderRepo{
		orders:   make(map[uuid.UUID]*model.Order),
		numbers:  make(map[string]bool),
		cartRepo: cartRepo,
	}
}

func (m *mockOrderRepo) Checkout(ctx context.Context, order *model.Order, cartID uuid.UUID, couponID *uuid.UUID) error {
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrOrderNumberTaken
	}
	if m.numbers[order.OrderNumber] {
		return repository.ErrOrderNumberTaken
	}
	if couponID != nil && m.exhaustCoupon {
		return repository.ErrCouponExhausted
	}

	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	m.numbers[order.OrderNumber] = true
	m.orders[order.ID] = order
	if m.cartRepo != nil {
		_ = m.cartRepo.Clear(ctx, cartID)
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, orderNumber string) (*model.Order, error) {
	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) List(_ context.Context, _, _ int) ([]model.Order, int, error) {
	var orders []model.Order
	for _, o := range m.orders {
		orders = append(orders, *o)
	}
	return orders, len(orders), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	if o, ok := m.orders[id]; ok {
		o.Status = status
	}
	return nil
}

func (m *mockOrderRepo) SetPreference(_ context.Context, id uuid.UUID, preferenceID string) error {
	if o, ok := m.orders[id]; ok {
		o.PreferenceID = preferenceID
	}
	return nil
}

func (m *mockOrderRepo) ApplyPaymentTransition(_ context.Context, id uuid.UUID, target model.PaymentStatus, paymentRef string, allowedFrom []model.PaymentStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	for _, from := range allowedFrom {
		if o.PaymentStatus == from {
			o.PaymentStatus = target
			o.PaymentReference = paymentRef
			return true, nil
		}
	}
	return false, nil
}

type mockEvents struct {
	events []model.OrderEvent
}

func (m *mockEvents) PublishOrderEvent(_ context.Context, event model.OrderEvent) error {
	m.events = append(m.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func checkoutRequest() dto.CheckoutRequest {
	return dto.CheckoutRequest{
		CustomerName:    "Maria Silva",
		CustomerEmail:   "maria@example.com",
		ShippingAddress: "Rua A, 123",
		ShippingCity:    "São Paulo",
		ShippingState:   "SP",
		ShippingZipCode: "01000-000",
		PaymentMethod:   "pix",
	}
}

type checkoutFixture struct {
	orderRepo  *mockOrderRepo
	cartRepo   *mockCartRepo
	couponRepo *mockCouponRepo
	events     *mockEvents
	svc        *CheckoutService
	session    string
}

func newCheckoutFixture(t *testing.T, shipping decimal.Decimal) *checkoutFixture {
	t.Helper()
	productRepo := newMockProductRepo()
	cartRepo := newMockCartRepo(productRepo)
	couponRepo := newMockCouponRepo()
	orderRepo := newMockOrderRepo(cartRepo)
	events := &mockEvents{}

	couponSvc := NewCouponService(couponRepo, cartRepo)
	svc := NewCheckoutService(orderRepo, cartRepo, couponSvc,
		FlatShipping{Cost: shipping}, events, "ASBJJ", testLogger())

	p := publishedProduct(productRepo, 125)
	cartSvc := NewCartService(cartRepo, productRepo)
	session := uuid.NewString()
	require.NoError(t, cartSvc.AddItem(context.Background(), session, p.ID, 2))

	return &checkoutFixture{
		orderRepo: orderRepo, cartRepo: cartRepo, couponRepo: couponRepo,
		events: events, svc: svc, session: session,
	}
}

func TestCheckoutService_PlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, decimal.Zero)
	_, err := f.svc.PlaceOrder(context.Background(), uuid.NewString(), checkoutRequest())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutService_PlaceOrder_TotalInvariant(t *testing.T) {
	f := newCheckoutFixture(t, decimal.NewFromInt(20))

	frete := &model.Coupon{
		ID: uuid.New(), Code: "FRETE15",
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(15),
		MinimumAmount: decimal.NewFromInt(150), Active: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}
	f.couponRepo.coupons[frete.Code] = frete

	req := checkoutRequest()
	req.CouponCode = "FRETE15"

	order, err := f.svc.PlaceOrder(context.Background(), f.session, req)
	require.NoError(t, err)

	// 2 x 125 = 250, minus 15, plus 20 shipping.
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(250)), "subtotal %s", order.Subtotal)
	assert.True(t, order.Discount.Equal(decimal.NewFromInt(15)), "discount %s", order.Discount)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(255)), "total %s", order.Total)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "FRETE15", *order.CouponCode)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// Cart is cleared and the confirmation event published exactly once.
	assert.Empty(t, f.cartRepo.items)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, model.OrderEventConfirmation, f.events.events[0].Kind)
}

func TestCheckoutService_PlaceOrder_RetriesOrderNumber(t *testing.T) {
	f := newCheckoutFixture(t, decimal.Zero)
	f.orderRepo.conflicts = 2

	order, err := f.svc.PlaceOrder(context.Background(), f.session, checkoutRequest())
	require.NoError(t, err)
	assert.Regexp(t, `^ASBJJ-\d{8}-\d{4}$`, order.OrderNumber)
}

func TestCheckoutService_PlaceOrder_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newCheckoutFixture(t, decimal.Zero)
	f.orderRepo.conflicts = orderNumberAttempts

	_, err := f.svc.PlaceOrder(context.Background(), f.session, checkoutRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrOrderNumberTaken)
}

func TestCheckoutService_PlaceOrder_CouponExhaustedAtCommit(t *testing.T) {
	f := newCheckoutFixture(t, decimal.Zero)
	f.orderRepo.exhaustCoupon = true

	frete := &model.Coupon{
		ID: uuid.New(), Code: "FRETE15",
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(15),
		Active:    true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}
	f.couponRepo.coupons[frete.Code] = frete

	req := checkoutRequest()
	req.CouponCode = "FRETE15"

	_, err := f.svc.PlaceOrder(context.Background(), f.session, req)
	assert.ErrorIs(t, err, ErrCouponLimitReached)
	assert.Empty(t, f.events.events)
}

func TestCheckoutService_UpdateStatus_Chain(t *testing.T) {
	f := newCheckoutFixture(t, decimal.Zero)
	order, err := f.svc.PlaceOrder(context.Background(), f.session, checkoutRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)

	for _, next := range []model.OrderStatus{
		model.OrderStatusConfirmed, model.OrderStatusProcessing,
		model.OrderStatusShipped, model.OrderStatusDelivered,
	} {
		updated, err := f.svc.UpdateStatus(context.Background(), order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	// confirmation + shipped + delivered
	require.Len(t, f.events.events, 3)
	assert.Equal(t, model.OrderEventShipped, f.events.events[1].Kind)
	assert.Equal(t, model.OrderEventDelivered, f.events.events[2].Kind)
}

func TestCheckoutService_UpdateStatus_NotFound(t *testing.T) {
	f := newCheckoutFixture(t, decimal.Zero)
	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
