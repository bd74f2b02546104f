package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/repository"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrProductUnavailable = errors.New("product is not available for sale")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, sessionToken string) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return s.cartRepo.GetWithItems(ctx, cart.ID)
}

// AddItem appends quantity to the session's line for the product, creating
// the line when absent. Products that are not available for sale are
// rejected rather than silently skipped.
func (s *CartService) AddItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if !product.AvailableForSale() {
		return ErrProductUnavailable
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}

	return s.cartRepo.AddItem(ctx, &model.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

// UpdateItemQuantity sets the line quantity; zero or negative removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, sessionToken string, itemID uuid.UUID, quantity int) error {
	cart, err := s.GetCart(ctx, sessionToken)
	if err != nil {
		return err
	}
	if !containsItem(cart.Items, itemID) {
		return ErrCartItemNotFound
	}
	return s.cartRepo.UpdateItemQuantity(ctx, itemID, quantity)
}

// RemoveItem deletes the line for the product; absent lines are a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionToken string, productID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}
	return s.cartRepo.DeleteItemByProduct(ctx, cart.ID, productID)
}

func (s *CartService) DeleteItem(ctx context.Context, sessionToken string, itemID uuid.UUID) error {
	cart, err := s.GetCart(ctx, sessionToken)
	if err != nil {
		return err
	}
	if !containsItem(cart.Items, itemID) {
		return ErrCartItemNotFound
	}
	return s.cartRepo.DeleteItem(ctx, itemID)
}

func (s *CartService) Clear(ctx context.Context, sessionToken string) error {
	cart, err := s.cartRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("get or create cart: %w", err)
	}
	return s.cartRepo.Clear(ctx, cart.ID)
}

func containsItem(items []model.CartItem, id uuid.UUID) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func ToCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, dto.CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.UnitPrice.Mul(decimalFromInt(item.Quantity)),
		})
	}
	return dto.CartResponse{
		ID:         cart.ID,
		Items:      items,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
	}
}
