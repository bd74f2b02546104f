package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asbjj/shop-api/internal/model"
)

// ErrOrderNumberTaken reports an order_number unique-constraint conflict so
// the caller can retry with a fresh number.
var ErrOrderNumberTaken = errors.New("order number already taken")

// ErrCouponExhausted reports that the coupon's usage limit was reached between
// validation and redemption.
var ErrCouponExhausted = errors.New("coupon usage limit reached")

type OrderRepository interface {
	// Checkout persists the order with its items, redeems the coupon (when
	// set) and clears the cart in a single transaction.
	Checkout(ctx context.Context, order *model.Order, cartID uuid.UUID, couponID *uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	List(ctx context.Context, limit, offset int) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	SetPreference(ctx context.Context, id uuid.UUID, preferenceID string) error
	// ApplyPaymentTransition moves payment_status to target only when the
	// current value is one of allowedFrom, recording the gateway payment id.
	// It reports whether a row actually changed.
	ApplyPaymentTransition(ctx context.Context, id uuid.UUID, target model.PaymentStatus, paymentRef string, allowedFrom []model.PaymentStatus) (bool, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) Checkout(ctx context.Context, order *model.Order, cartID uuid.UUID, couponID *uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, order_number, customer_name, customer_email, customer_phone,
			shipping_address, shipping_city, shipping_state, shipping_zip_code,
			subtotal, discount, coupon_code, shipping_cost, total,
			status, payment_status, payment_method, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.ShippingAddress, order.ShippingCity, order.ShippingState, order.ShippingZipCode,
		order.Subtotal, order.Discount, order.CouponCode, order.ShippingCost, order.Total,
		order.Status, order.PaymentStatus, order.PaymentMethod, order.Notes,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key" {
			return ErrOrderNumberTaken
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, total_price, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
			order.Items[i].ID, order.ID, order.Items[i].ProductID, order.Items[i].ProductName,
			order.Items[i].Quantity, order.Items[i].Price, order.Items[i].TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if couponID != nil {
		redeemed, err := redeemCoupon(ctx, tx, *couponID)
		if err != nil {
			return err
		}
		if !redeemed {
			return ErrCouponExhausted
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return tx.Commit(ctx)
}

const orderColumns = `id, order_number, customer_name, customer_email, customer_phone,
	shipping_address, shipping_city, shipping_state, shipping_zip_code,
	subtotal, discount, coupon_code, shipping_cost, total,
	status, payment_status, payment_method, payment_reference, preference_id, notes,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingState, &o.ShippingZipCode,
		&o.Subtotal, &o.Discount, &o.CouponCode, &o.ShippingCost, &o.Total,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.PaymentReference, &o.PreferenceID, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *pgOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
}

func (r *pgOrderRepo) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price, total_price
		 FROM order_items WHERE order_id = $1 ORDER BY created_at`, order.ID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.Price, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return order, nil
}

func (r *pgOrderRepo) List(ctx context.Context, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, total, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) SetPreference(ctx context.Context, id uuid.UUID, preferenceID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET preference_id = $2, updated_at = NOW() WHERE id = $1`, id, preferenceID)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) ApplyPaymentTransition(ctx context.Context, id uuid.UUID, target model.PaymentStatus, paymentRef string, allowedFrom []model.PaymentStatus) (bool, error) {
	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2, payment_reference = $3, updated_at = NOW()
		 WHERE id = $1 AND payment_status = ANY($4)`,
		id, target, paymentRef, from)
	if err != nil {
		return false, fmt.Errorf("apply payment transition: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
