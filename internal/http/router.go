package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/tradebridge/backend/internal/auth"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/http/handlers"
	"github.com/tradebridge/backend/internal/middleware"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	sessions *auth.SessionStore,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	chatHandler *handlers.ChatHandler,
	escrowHandler *handlers.EscrowHandler,
	disputeHandler *handlers.DisputeHandler,
	walletHandler *handlers.WalletHandler,
	notificationHandler *handlers.NotificationHandler,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowCredentials: false,
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Meta (public, no auth required)
	metaHandler := handlers.NewMetaHandler(cfg)
	api.Get("/meta/client-config", metaHandler.GetClientConfig)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, sessions, log))

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", userHandler.GetMe)

	// Chats
	protected.Post("/chats", chatHandler.CreateChat)
	protected.Get("/chats", chatHandler.ListChats)
	protected.Get("/chats/:id", chatHandler.GetChat)
	protected.Post("/chats/:id/participants", chatHandler.AddParticipant)
	protected.Post("/chats/:id/messages", chatHandler.PostMessage)
	protected.Get("/chats/:id/messages", chatHandler.ListMessages)
	protected.Post("/messages/:id/edit", chatHandler.EditMessage)
	protected.Post("/chats/:id/read", chatHandler.MarkRead)
	protected.Get("/chats/:id/escrows", escrowHandler.ListChatEscrows)

	// Escrows: lifecycle moves are action verbs, never raw status writes.
	protected.Post("/escrows", escrowHandler.CreateEscrow)
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Post("/escrows/:id/fund", escrowHandler.FundEscrow)
	protected.Post("/escrows/:id/release", escrowHandler.ReleaseEscrow)
	protected.Get("/escrows/:id/disputes", disputeHandler.ListEscrowDisputes)

	// Disputes
	protected.Post("/disputes", disputeHandler.FileDispute)
	protected.Get("/disputes/:id", disputeHandler.GetDispute)
	protected.Post("/disputes/:id/review", disputeHandler.ReviewDispute)
	protected.Post("/disputes/:id/resolve", disputeHandler.ResolveDispute)

	// Wallet
	protected.Get("/wallet/balances", walletHandler.GetBalances)
	protected.Get("/wallet/transactions", walletHandler.ListTransactions)

	// Notifications
	protected.Get("/notifications", notificationHandler.ListNotifications)
	protected.Post("/notifications/:id/read", notificationHandler.MarkRead)
}
