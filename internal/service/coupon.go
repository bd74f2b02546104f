package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/repository"
)

var (
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponInactive     = errors.New("coupon is not active")
	ErrCouponExpired      = errors.New("coupon is outside its validity window")
	ErrCouponLimitReached = errors.New("coupon usage limit reached")
	ErrCouponBelowMinimum = errors.New("cart subtotal is below the coupon minimum")
)

type CouponService struct {
	couponRepo repository.CouponRepository
	cartRepo   repository.CartRepository
	now        func() time.Time
}

func NewCouponService(couponRepo repository.CouponRepository, cartRepo repository.CartRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo, cartRepo: cartRepo, now: time.Now}
}

// Validate returns the coupon when it can be applied to the given subtotal,
// or a typed reason when it cannot.
func (s *CouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	now := s.now()
	switch {
	case !coupon.Active:
		return nil, ErrCouponInactive
	case now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil):
		return nil, ErrCouponExpired
	case coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit:
		return nil, ErrCouponLimitReached
	case subtotal.LessThan(coupon.MinimumAmount):
		return nil, ErrCouponBelowMinimum
	}
	return coupon, nil
}

// Apply previews the discount the code would grant on the session's current
// cart. Nothing is redeemed; used_count only moves at checkout.
func (s *CouponService) Apply(ctx context.Context, sessionToken, code string) (*dto.ApplyCouponResponse, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	cart, err = s.cartRepo.GetWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}

	subtotal := cart.TotalPrice()
	coupon, err := s.Validate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}

	discount := coupon.DiscountFor(subtotal, s.now())
	return &dto.ApplyCouponResponse{
		Code:     coupon.Code,
		Discount: discount,
		NewTotal: subtotal.Sub(discount),
	}, nil
}

func (s *CouponService) Create(ctx context.Context, req dto.CreateCouponRequest) (*dto.CouponResponse, error) {
	coupon := &model.Coupon{
		Code:            strings.ToUpper(strings.TrimSpace(req.Code)),
		Description:     req.Description,
		DiscountType:    model.DiscountType(req.DiscountType),
		DiscountValue:   req.DiscountValue,
		MinimumAmount:   req.MinimumAmount,
		MaximumDiscount: req.MaximumDiscount,
		UsageLimit:      req.UsageLimit,
		Active:          true,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	resp := toCouponResponse(coupon)
	return &resp, nil
}

func (s *CouponService) List(ctx context.Context) ([]dto.CouponResponse, error) {
	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	items := make([]dto.CouponResponse, 0, len(coupons))
	for i := range coupons {
		items = append(items, toCouponResponse(&coupons[i]))
	}
	return items, nil
}

func (s *CouponService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.couponRepo.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	return nil
}

func toCouponResponse(c *model.Coupon) dto.CouponResponse {
	return dto.CouponResponse{
		ID:              c.ID,
		Code:            c.Code,
		Description:     c.Description,
		DiscountType:    string(c.DiscountType),
		DiscountValue:   c.DiscountValue,
		MinimumAmount:   c.MinimumAmount,
		MaximumDiscount: c.MaximumDiscount,
		UsageLimit:      c.UsageLimit,
		UsedCount:       c.UsedCount,
		Active:          c.Active,
		ValidFrom:       c.ValidFrom,
		ValidUntil:      c.ValidUntil,
	}
}

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
