package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/asbjj/shop-api/internal/repository"
)

// CleanupJob prunes anonymous carts and wishlists idle longer than the
// configured TTL. Registered with the cron scheduler in main.
type CleanupJob struct {
	cartRepo     repository.CartRepository
	wishlistRepo repository.WishlistRepository
	ttl          time.Duration
	log          *slog.Logger
}

func NewCleanupJob(cartRepo repository.CartRepository, wishlistRepo repository.WishlistRepository, ttl time.Duration, log *slog.Logger) *CleanupJob {
	return &CleanupJob{cartRepo: cartRepo, wishlistRepo: wishlistRepo, ttl: ttl, log: log}
}

func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.ttl)

	carts, err := j.cartRepo.DeleteIdleSince(ctx, cutoff)
	if err != nil {
		j.log.Error("cleanup carts", "error", err)
	}
	wishlists, err := j.wishlistRepo.DeleteIdleSince(ctx, cutoff)
	if err != nil {
		j.log.Error("cleanup wishlists", "error", err)
	}
	j.log.Info("session cleanup finished", "carts", carts, "wishlists", wishlists)
}
