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

type mockCartRepo struct {
	productRepo *mockProductRepo
	carts       map[string]*model.Cart
	items       map[uuid.UUID]*model.CartItem
}

func newMockCartRepo(productRepo *mockProductRepo) *mockCartRepo {
	return &mockCartRepo{
		productRepo: productRepo,
		carts:       make(map[string]*model.Cart),
		items:       make(map[uuid.UUID]*model.CartItem),
	}
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, sessionToken string) (*model.Cart, error) {
	if cart, ok := m.carts[sessionToken]; ok {
		return cart, nil
	}
	cart := &model.Cart{ID: uuid.New(), SessionToken: sessionToken}
	m.carts[sessionToken] = cart
	return cart, nil
}

func (m *mockCartRepo) GetWithItems(_ context.Context, cartID uuid.UUID) (*model.Cart, error) {
	for _, cart := range m.carts {
		if cart.ID != cartID {
			continue
		}
		out := *cart
		out.Items = nil
		for _, item := range m.items {
			if item.CartID != cartID {
				continue
			}
			line := *item
			if p, ok := m.productRepo.products[item.ProductID]; ok {
				line.ProductName = p.Name
				line.UnitPrice = p.Price
			}
			out.Items = append(out.Items, line)
		}
		return &out, nil
	}
	return nil, nil
}

func (m *mockCartRepo) AddItem(_ context.Context, item *model.CartItem) error {
	for _, existing := range m.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			return nil
		}
	}
	item.ID = uuid.New()
	m.items[item.ID] = item
	return nil
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		delete(m.items, itemID)
		return nil
	}
	if item, ok := m.items[itemID]; ok {
		item.Quantity = quantity
	}
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepo) DeleteItemByProduct(_ context.Context, cartID, productID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, cartID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockCartRepo) DeleteIdleSince(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func TestCartService_AddItem_MergesQuantities(t *testing.T) {
	productRepo := newMockProductRepo()
	cartRepo := newMockCartRepo(productRepo)
	p := publishedProduct(productRepo, 125)
	svc := NewCartService(cartRepo, productRepo)
	session := uuid.NewString()

	require.NoError(t, svc.AddItem(context.Background(), session, p.ID, 2))
	require.NoError(t, svc.AddItem(context.Background(), session, p.ID, 3))

	cart, err := svc.GetCart(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewCartService(newMockCartRepo(productRepo), productRepo)
	err := svc.AddItem(context.Background(), uuid.NewString(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_Unavailable(t *testing.T) {
	productRepo := newMockProductRepo()
	p := publishedProduct(productRepo, 100)
	p.Stock = 0
	svc := NewCartService(newMockCartRepo(productRepo), productRepo)

	err := svc.AddItem(context.Background(), uuid.NewString(), p.ID, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewCartService(newMockCartRepo(productRepo), productRepo)
	err := svc.AddItem(context.Background(), uuid.NewString(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_UpdateItemQuantity_ZeroRemovesLine(t *testing.T) {
	productRepo := newMockProductRepo()
	cartRepo := newMockCartRepo(productRepo)
	p := publishedProduct(productRepo, 100)
	svc := NewCartService(cartRepo, productRepo)
	session := uuid.NewString()

	require.NoError(t, svc.AddItem(context.Background(), session, p.ID, 2))
	cart, _ := svc.GetCart(context.Background(), session)
	require.Len(t, cart.Items, 1)

	require.NoError(t, svc.UpdateItemQuantity(context.Background(), session, cart.Items[0].ID, 0))

	cart, _ = svc.GetCart(context.Background(), session)
	assert.Empty(t, cart.Items)
}

func TestCartService_UpdateItemQuantity_UnknownItem(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewCartService(newMockCartRepo(productRepo), productRepo)
	err := svc.UpdateItemQuantity(context.Background(), uuid.NewString(), uuid.New(), 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_Clear(t *testing.T) {
	productRepo := newMockProductRepo()
	cartRepo := newMockCartRepo(productRepo)
	p := publishedProduct(productRepo, 100)
	svc := NewCartService(cartRepo, productRepo)
	session := uuid.NewString()

	require.NoError(t, svc.AddItem(context.Background(), session, p.ID, 2))
	require.NoError(t, svc.Clear(context.Background(), session))

	cart, _ := svc.GetCart(context.Background(), session)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems())
}
