package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asbjj/shop-api/internal/model"
)

type WishlistRepository interface {
	GetOrCreate(ctx context.Context, sessionToken string) (*model.Wishlist, error)
	GetWithItems(ctx context.Context, wishlistID uuid.UUID) (*model.Wishlist, error)
	AddItem(ctx context.Context, wishlistID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) error
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgWishlistRepo struct{ pool *pgxpool.Pool }

func NewWishlistRepository(pool *pgxpool.Pool) WishlistRepository {
	return &pgWishlistRepo{pool: pool}
}

func (r *pgWishlistRepo) GetOrCreate(ctx context.Context, sessionToken string) (*model.Wishlist, error) {
	w := &model.Wishlist{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_token, created_at, updated_at FROM wishlists WHERE session_token = $1`, sessionToken,
	).Scan(&w.ID, &w.SessionToken, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			w.ID = uuid.New()
			w.SessionToken = sessionToken
			err = r.pool.QueryRow(ctx,
				`INSERT INTO wishlists (id, session_token, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
				 ON CONFLICT (session_token) DO UPDATE SET updated_at = NOW()
				 RETURNING id, created_at, updated_at`,
				w.ID, w.SessionToken,
			).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("create wishlist: %w", err)
			}
			return w, nil
		}
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	return w, nil
}

func (r *pgWishlistRepo) GetWithItems(ctx context.Context, wishlistID uuid.UUID) (*model.Wishlist, error) {
	w := &model.Wishlist{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_token, created_at, updated_at FROM wishlists WHERE id = $1`, wishlistID,
	).Scan(&w.ID, &w.SessionToken, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT wi.id, wi.wishlist_id, wi.product_id, p.name, p.price, wi.created_at
		 FROM wishlist_items wi
		 JOIN products p ON p.id = wi.product_id
		 WHERE wi.wishlist_id = $1
		 ORDER BY wi.created_at`, wishlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("get wishlist items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.WishlistItem
		if err := rows.Scan(&item.ID, &item.WishlistID, &item.ProductID,
			&item.ProductName, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		w.Items = append(w.Items, item)
	}
	return w, nil
}

// AddItem is idempotent: saving the same product twice keeps a single row.
func (r *pgWishlistRepo) AddItem(ctx context.Context, wishlistID, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wishlist_items (id, wishlist_id, product_id, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (wishlist_id, product_id) DO NOTHING`,
		uuid.New(), wishlistID, productID)
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

func (r *pgWishlistRepo) RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM wishlist_items WHERE wishlist_id = $1 AND product_id = $2`, wishlistID, productID)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	return nil
}

func (r *pgWishlistRepo) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM wishlists WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idle wishlists: %w", err)
	}
	return ct.RowsAffected(), nil
}
