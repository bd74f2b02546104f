package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbjj/shop-api/internal/model"
)

type mockWishlistRepo struct {
	productRepo *mockProductRepo
	wishlists   map[string]*model.Wishlist
	items       map[uuid.UUID]map[uuid.UUID]bool
}

func newMockWishlistRepo(productRepo *mockProductRepo) *mockWishlistRepo {
	return &mockWishlistRepo{
		productRepo: productRepo,
		wishlists:   make(map[string]*model.Wishlist),
		items:       make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockWishlistRepo) GetOrCreate(_ context.Context, sessionToken string) (*model.Wishlist, error) {
	if w, ok := m.wishlists[sessionToken]; ok {
		return w, nil
	}
	w := &model.Wishlist{ID: uuid.New(), SessionToken: sessionToken}
	m.wishlists[sessionToken] = w
	m.items[w.ID] = make(map[uuid.UUID]bool)
	return w, nil
}

func (m *mockWishlistRepo) GetWithItems(_ context.Context, wishlistID uuid.UUID) (*model.Wishlist, error) {
	for _, w := range m.wishlists {
		if w.ID != wishlistID {
			continue
		}
		out := *w
		out.Items = nil
		for productID := range m.items[wishlistID] {
			item := model.WishlistItem{ID: uuid.New(), WishlistID: wishlistID, ProductID: productID}
			if p, ok := m.productRepo.products[productID]; ok {
				item.ProductName = p.Name
				item.UnitPrice = p.Price
			}
			out.Items = append(out.Items, item)
		}
		return &out, nil
	}
	return nil, nil
}

func (m *mockWishlistRepo) AddItem(_ context.Context, wishlistID, productID uuid.UUID) error {
	m.items[wishlistID][productID] = true
	return nil
}

func (m *mockWishlistRepo) RemoveItem(_ context.Context, wishlistID, productID uuid.UUID) error {
	delete(m.items[wishlistID], productID)
	return nil
}

func (m *mockWishlistRepo) DeleteIdleSince(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func TestWishlistService_AddItem_Idempotent(t *testing.T) {
	productRepo := newMockProductRepo()
	wishlistRepo := newMockWishlistRepo(productRepo)
	p := publishedProduct(productRepo, 49.9)
	svc := NewWishlistService(wishlistRepo, productRepo)
	session := uuid.NewString()

	require.NoError(t, svc.AddItem(context.Background(), session, p.ID))
	require.NoError(t, svc.AddItem(context.Background(), session, p.ID))

	w, err := svc.Get(context.Background(), session)
	require.NoError(t, err)
	assert.Len(t, w.Items, 1)
}

func TestWishlistService_AddItem_UnknownProduct(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewWishlistService(newMockWishlistRepo(productRepo), productRepo)
	err := svc.AddItem(context.Background(), uuid.NewString(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestWishlistService_RemoveItem(t *testing.T) {
	productRepo := newMockProductRepo()
	wishlistRepo := newMockWishlistRepo(productRepo)
	p := publishedProduct(productRepo, 49.9)
	svc := NewWishlistService(wishlistRepo, productRepo)
	session := uuid.NewString()

	require.NoError(t, svc.AddItem(context.Background(), session, p.ID))
	require.NoError(t, svc.RemoveItem(context.Background(), session, p.ID))

	w, err := svc.Get(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, w.Items)
}
