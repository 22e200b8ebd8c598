package http

import (
	"time"

	"github.com/bitbond/backend/internal/config"
	"github.com/bitbond/backend/internal/http/handlers"
	"github.com/bitbond/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	escrowHandler *handlers.EscrowHandler,
	flowHandler *handlers.FlowHandler,
	metaHandler *handlers.MetaHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Wallet auth (public)
	api.Get("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/verify", authHandler.Verify)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Meta (public, no auth required)
	api.Get("/meta/contract", metaHandler.Contract)
	api.Get("/meta/abi", metaHandler.ABI)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Account
	protected.Get("/me", authHandler.Me)
	protected.Post("/me/ping", authHandler.Ping)

	// Escrows
	protected.Post("/escrows", escrowHandler.CreateEscrow)
	protected.Get("/escrows/my", escrowHandler.ListMine)
	protected.Get("/escrows/count", escrowHandler.Count)
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Post("/escrows/:id/release", escrowHandler.ReleaseFunds)
	protected.Post("/escrows/:id/dispute", escrowHandler.RaiseDispute)
	protected.Post("/escrows/:id/refund", escrowHandler.RefundAfterDeadline)
	protected.Get("/escrows/:id/events", escrowHandler.GetEvents)

	// Orchestration flow, one per account
	protected.Get("/flow", flowHandler.Status)
	protected.Post("/flow/intention", flowHandler.Build)
	protected.Post("/flow/finalize", flowHandler.Finalize)
	protected.Post("/flow/sign", flowHandler.Sign)
	protected.Post("/flow/broadcast", flowHandler.Broadcast)
	protected.Post("/flow/cancel", flowHandler.Cancel)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
