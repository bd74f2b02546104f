package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbjj/shop-api/internal/model"
)

type mockCouponRepo struct {
	coupons map[string]*model.Coupon
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[string]*model.Coupon)}
}

func (m *mockCouponRepo) Create(_ context.Context, coupon *model.Coupon) error {
	coupon.ID = uuid.New()
	m.coupons[strings.ToUpper(coupon.Code)] = coupon
	return nil
}

func (m *mockCouponRepo) GetByCode(_ context.Context, code string) (*model.Coupon, error) {
	return m.coupons[strings.ToUpper(code)], nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]model.Coupon, error) {
	var coupons []model.Coupon
	for _, c := range m.coupons {
		coupons = append(coupons, *c)
	}
	return coupons, nil
}

func (m *mockCouponRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	for _, c := range m.coupons {
		if c.ID == id {
			c.Active = active
		}
	}
	return nil
}

func welcomeCoupon() *model.Coupon {
	max := decimal.NewFromInt(50)
	return &model.Coupon{
		ID:              uuid.New(),
		Code:            "BEMVINDO10",
		DiscountType:    model.DiscountPercentage,
		DiscountValue:   decimal.NewFromInt(10),
		MinimumAmount:   decimal.NewFromInt(100),
		MaximumDiscount: &max,
		Active:          true,
		ValidFrom:       time.Now().Add(-time.Hour),
		ValidUntil:      time.Now().Add(time.Hour),
	}
}

func TestCouponService_Validate(t *testing.T) {
	repo := newMockCouponRepo()
	coupon := welcomeCoupon()
	repo.coupons[coupon.Code] = coupon
	svc := NewCouponService(repo, nil)

	got, err := svc.Validate(context.Background(), "bemvindo10", decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, got.ID)
}

func TestCouponService_Validate_Reasons(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.Coupon)
		subtotal decimal.Decimal
		want     error
	}{
		{"inactive", func(c *model.Coupon) { c.Active = false }, decimal.NewFromInt(200), ErrCouponInactive},
		{"expired", func(c *model.Coupon) { c.ValidUntil = time.Now().Add(-time.Minute) }, decimal.NewFromInt(200), ErrCouponExpired},
		{"not yet valid", func(c *model.Coupon) { c.ValidFrom = time.Now().Add(time.Minute) }, decimal.NewFromInt(200), ErrCouponExpired},
		{"limit reached", func(c *model.Coupon) { limit := 1; c.UsageLimit = &limit; c.UsedCount = 1 }, decimal.NewFromInt(200), ErrCouponLimitReached},
		{"below minimum", func(*model.Coupon) {}, decimal.NewFromInt(99), ErrCouponBelowMinimum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockCouponRepo()
			coupon := welcomeCoupon()
			tt.mutate(coupon)
			repo.coupons[coupon.Code] = coupon
			svc := NewCouponService(repo, nil)

			_, err := svc.Validate(context.Background(), coupon.Code, tt.subtotal)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCouponService_Validate_NotFound(t *testing.T) {
	svc := NewCouponService(newMockCouponRepo(), nil)
	_, err := svc.Validate(context.Background(), "NOPE", decimal.NewFromInt(200))
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestCouponService_Apply_PreviewsWithoutRedeeming(t *testing.T) {
	productRepo := newMockProductRepo()
	cartRepo := newMockCartRepo(productRepo)
	couponRepo := newMockCouponRepo()
	coupon := welcomeCoupon()
	couponRepo.coupons[coupon.Code] = coupon

	p := publishedProduct(productRepo, 500)
	cartSvc := NewCartService(cartRepo, productRepo)
	session := uuid.NewString()
	require.NoError(t, cartSvc.AddItem(context.Background(), session, p.ID, 2))

	svc := NewCouponService(couponRepo, cartRepo)
	resp, err := svc.Apply(context.Background(), session, "BEMVINDO10")
	require.NoError(t, err)

	// 10% of 1000 would be 100; capped at the 50 maximum.
	assert.True(t, resp.Discount.Equal(decimal.NewFromInt(50)), "got %s", resp.Discount)
	assert.True(t, resp.NewTotal.Equal(decimal.NewFromInt(950)), "got %s", resp.NewTotal)
	assert.Equal(t, 0, coupon.UsedCount)
}
