package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/auth"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/db"
	"github.com/tradebridge/backend/internal/events"
	apphttp "github.com/tradebridge/backend/internal/http"
	"github.com/tradebridge/backend/internal/http/handlers"
	"github.com/tradebridge/backend/internal/repositories"
	"github.com/tradebridge/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Storage
	store := repositories.NewPgStore(pool)
	sessions := auth.NewSessionStore(rdb)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	chatService := services.NewChatService(store, publisher, cfg, log)
	escrowService := services.NewEscrowService(store, chatService, publisher, cfg, log)
	disputeService := services.NewDisputeService(store, escrowService, chatService, publisher, cfg, log)
	walletService := services.NewWalletService(store)
	notificationService := services.NewNotificationService(store, subscriber, log)

	if err := notificationService.Start(ctx); err != nil {
		log.Fatal("failed to start notification fanout", zap.Error(err))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(store, sessions, cfg, log)
	userHandler := handlers.NewUserHandler(store, log)
	chatHandler := handlers.NewChatHandler(chatService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	disputeHandler := handlers.NewDisputeHandler(disputeService, log)
	walletHandler := handlers.NewWalletHandler(walletService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			appErr := apperr.From(err)
			return c.Status(appErr.Status).JSON(fiber.Map{"error": appErr.Message, "code": appErr.Code})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, sessions,
		authHandler, userHandler, chatHandler, escrowHandler, disputeHandler, walletHandler, notificationHandler)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
