package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/asbjj/shop-api/internal/config"
	"github.com/asbjj/shop-api/internal/handler"
	"github.com/asbjj/shop-api/internal/middleware"
	"github.com/asbjj/shop-api/internal/notification"
	"github.com/asbjj/shop-api/internal/payment"
	"github.com/asbjj/shop-api/internal/repository"
	"github.com/asbjj/shop-api/internal/service"
	"github.com/asbjj/shop-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	shippingFlat, err := decimal.NewFromString(cfg.Shop.ShippingFlat)
	if err != nil {
		log.Error("parse SHOP_SHIPPING_FLAT", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	couponRepo := repository.NewCouponRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	wishlistRepo := repository.NewWishlistRepository(dbPool)

	// Services
	publisher := worker.NewPublisher(amqpCh)
	gateway := payment.NewClient(cfg.MercadoPago, cfg.Shop.Currency)

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(productRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	couponSvc := service.NewCouponService(couponRepo, cartRepo)
	checkoutSvc := service.NewCheckoutService(
		orderRepo, cartRepo, couponSvc,
		service.FlatShipping{Cost: shippingFlat},
		publisher, cfg.Shop.OrderPrefix, log,
	)
	paymentSvc := service.NewPaymentService(orderRepo, gateway, publisher, log)
	wishlistSvc := service.NewWishlistService(wishlistRepo, productRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	cartH := handler.NewCartHandler(cartSvc)
	couponH := handler.NewCouponHandler(couponSvc)
	orderH := handler.NewOrderHandler(checkoutSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	wishlistH := handler.NewWishlistHandler(wishlistSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Workers
	mailer := notification.NewSMTPMailer(cfg.SMTP)
	notifWorker := worker.NewNotificationWorker(amqpCh, orderRepo, mailer, redisClient, cfg.Shop.AdminEmail, log)

	scheduler := cron.New()
	cleanup := worker.NewCleanupJob(cartRepo, wishlistRepo, cfg.Shop.CartTTL, log)
	if _, err := scheduler.AddJob("@hourly", cleanup); err != nil {
		log.Error("schedule cleanup job", "error", err)
		os.Exit(1)
	}

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)
	router.POST("/webhooks/mercadopago", paymentH.Webhook)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", catalogH.List)
		products.GET("/:id", catalogH.GetByID)
		products.GET("/:id/reviews", catalogH.ListReviews)
		products.POST("/:id/reviews", catalogH.AddReview)

		v1.GET("/categories", catalogH.ListCategories)

		cart := v1.Group("/cart", middleware.Session())
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)
		cart.DELETE("/products/:productId", cartH.RemoveProduct)
		cart.DELETE("", cartH.Clear)
		cart.POST("/coupon", couponH.Apply)

		wishlist := v1.Group("/wishlist", middleware.Session())
		wishlist.GET("", wishlistH.Get)
		wishlist.POST("/items", wishlistH.AddItem)
		wishlist.DELETE("/items/:productId", wishlistH.RemoveItem)

		orders := v1.Group("/orders", middleware.Session())
		orders.POST("", orderH.Checkout)
		orders.GET("/number/:number", orderH.GetByNumber)
		orders.POST("/:id/payment", paymentH.CreateIntent)

		admin := v1.Group("/admin", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ManagerOnly())
		admin.GET("/products", catalogH.ListAll)
		admin.POST("/products", catalogH.Create)
		admin.PUT("/products/:id", catalogH.Update)
		admin.DELETE("/products/:id", catalogH.Delete)
		admin.POST("/categories", catalogH.CreateCategory)
		admin.GET("/coupons", couponH.List)
		admin.POST("/coupons", couponH.Create)
		admin.DELETE("/coupons/:id", couponH.Deactivate)
		admin.GET("/orders", orderH.List)
		admin.GET("/orders/:id", orderH.GetByID)
		admin.PUT("/orders/:id/status", orderH.UpdateStatus)
	}

	if err := notifWorker.Start(ctx); err != nil {
		log.Error("start notification worker", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	<-scheduler.Stop().Done()
	notifWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
