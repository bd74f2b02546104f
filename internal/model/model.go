package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// CanManageShop reports whether the role may manage products, coupons and orders.
func (r Role) CanManageShop() bool { return r == RoleAdmin }

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductStatus string

const (
	ProductStatusDraft        ProductStatus = "draft"
	ProductStatusPublished    ProductStatus = "published"
	ProductStatusOutOfStock   ProductStatus = "out_of_stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

type Product struct {
	ID           uuid.UUID
	Name         string
	Slug         string
	Description  string
	Price        decimal.Decimal
	ComparePrice *decimal.Decimal
	Stock        int
	TrackStock   bool
	Status       ProductStatus
	CategoryID   *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailableForSale reports whether the product can be added to a cart.
func (p *Product) AvailableForSale() bool {
	if p.Status != ProductStatusPublished {
		return false
	}
	return !p.TrackStock || p.Stock > 0
}

type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Author    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Cart is the session-scoped mutable list of product lines prior to purchase.
// Totals are derived from the items on every read, never stored.
type Cart struct {
	ID           uuid.UUID
	SessionToken string
	Items        []CartItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int

	// Joined from products on read.
	ProductName string
	UnitPrice   decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID              uuid.UUID
	Code            string
	Description     string
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	MinimumAmount   decimal.Decimal
	MaximumDiscount *decimal.Decimal
	UsageLimit      *int
	UsedCount       int
	Active          bool
	ValidFrom       time.Time
	ValidUntil      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidAt reports whether the coupon can be redeemed at the given instant.
func (c *Coupon) ValidAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	return c.UsageLimit == nil || c.UsedCount < *c.UsageLimit
}

// DiscountFor computes the discount granted on the given subtotal. The result
// is zero when the coupon is invalid or the subtotal is below the minimum, is
// capped at MaximumDiscount for percentage coupons, and never exceeds the
// subtotal itself.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal, now time.Time) decimal.Decimal {
	if !c.ValidAt(now) || subtotal.LessThan(c.MinimumAmount) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if c.MaximumDiscount != nil && discount.GreaterThan(*c.MaximumDiscount) {
			discount = *c.MaximumDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Order is the immutable post-checkout snapshot of a purchase. Only Status,
// PaymentStatus and PaymentReference change after creation.
type Order struct {
	ID          uuid.UUID
	OrderNumber string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	ShippingAddress string
	ShippingCity    string
	ShippingState   string
	ShippingZipCode string

	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	CouponCode   *string
	ShippingCost decimal.Decimal
	Total        decimal.Decimal

	Status           OrderStatus
	PaymentStatus    PaymentStatus
	PaymentMethod    PaymentMethod
	PaymentReference string
	PreferenceID     string
	Notes            string

	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem captures the product price at checkout time; later price changes
// never affect a persisted order.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	TotalPrice  decimal.Decimal
}

type Wishlist struct {
	ID           uuid.UUID
	SessionToken string
	Items        []WishlistItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type WishlistItem struct {
	ID         uuid.UUID
	WishlistID uuid.UUID
	ProductID  uuid.UUID

	ProductName string
	UnitPrice   decimal.Decimal
	CreatedAt   time.Time
}

type OrderEventKind string

const (
	OrderEventConfirmation     OrderEventKind = "confirmation"
	OrderEventPaymentConfirmed OrderEventKind = "payment_confirmed"
	OrderEventShipped          OrderEventKind = "shipped"
	OrderEventDelivered        OrderEventKind = "delivered"
)

// OrderEvent is the message placed on the notification queue.
type OrderEvent struct {
	OrderID uuid.UUID      `json:"order_id"`
	Kind    OrderEventKind `json:"kind"`
}
