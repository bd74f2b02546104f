package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/model"
	"github.com/asbjj/shop-api/internal/repository"
)

type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
}

func NewWishlistService(wishlistRepo repository.WishlistRepository, productRepo repository.ProductRepository) *WishlistService {
	return &WishlistService{wishlistRepo: wishlistRepo, productRepo: productRepo}
}

func (s *WishlistService) Get(ctx context.Context, sessionToken string) (*model.Wishlist, error) {
	w, err := s.wishlistRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("get or create wishlist: %w", err)
	}
	return s.wishlistRepo.GetWithItems(ctx, w.ID)
}

// AddItem saves the product; adding the same product again is a no-op.
func (s *WishlistService) AddItem(ctx context.Context, sessionToken string, productID uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	w, err := s.wishlistRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("get or create wishlist: %w", err)
	}
	return s.wishlistRepo.AddItem(ctx, w.ID, productID)
}

func (s *WishlistService) RemoveItem(ctx context.Context, sessionToken string, productID uuid.UUID) error {
	w, err := s.wishlistRepo.GetOrCreate(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("get or create wishlist: %w", err)
	}
	return s.wishlistRepo.RemoveItem(ctx, w.ID, productID)
}

func ToWishlistResponse(w *model.Wishlist) dto.WishlistResponse {
	items := make([]dto.WishlistItemResponse, 0, len(w.Items))
	for _, item := range w.Items {
		items = append(items, dto.WishlistItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Price:     item.UnitPrice,
		})
	}
	return dto.WishlistResponse{ID: w.ID, Items: items}
}
