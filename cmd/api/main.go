package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitbond/backend/internal/bridge"
	"github.com/bitbond/backend/internal/config"
	"github.com/bitbond/backend/internal/contract"
	"github.com/bitbond/backend/internal/db"
	"github.com/bitbond/backend/internal/events"
	"github.com/bitbond/backend/internal/explorer"
	apphttp "github.com/bitbond/backend/internal/http"
	"github.com/bitbond/backend/internal/http/handlers"
	"github.com/bitbond/backend/internal/repositories"
	"github.com/bitbond/backend/internal/services"
	"github.com/gofiber/fiber/v2"
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

	// Repositories
	escrowRepo := repositories.NewEscrowRepo(pool)
	accountRepo := repositories.NewAccountRepo(pool)
	nonceRepo := repositories.NewNonceRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Chain reader: live RPC in chain mode, nil in demo mode so the
	// escrow service falls back to the database mirror.
	var chainReader contract.Reader
	if !cfg.DemoMode && cfg.ContractAddress != "" {
		ethClient, err := contract.NewEthClient(ctx, contract.EthClientConfig{
			RPCURL:          cfg.ChainRPCURL,
			ContractAddress: cfg.ContractAddress,
			PrivateKeyHex:   cfg.RelayerPrivateKey,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to chain rpc", zap.Error(err))
		}
		if err := ethClient.Ping(ctx); err != nil {
			log.Warn("chain rpc not reachable at startup", zap.Error(err))
		}
		chainReader = ethClient
	}

	// Services
	escrowService := services.NewEscrowService(escrowRepo, chainReader, auditRepo, publisher, log)

	var txBridge bridge.Bridge
	if cfg.DemoMode {
		txBridge = bridge.NewDemoBridge(escrowService, log)
	} else {
		txBridge = bridge.NewHTTPBridge(cfg.BridgeInternalURL, log)
	}
	orchestration := services.NewOrchestrationService(txBridge, escrowService, publisher, cfg.ContractAddress, cfg.ConfirmationTimeout, log)

	// Handlers
	links := explorer.New(cfg.ExplorerBaseURL)
	authHandler := handlers.NewAuthHandler(accountRepo, nonceRepo, cfg, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, links, log)
	flowHandler := handlers.NewFlowHandler(orchestration, log)
	metaHandler := handlers.NewMetaHandler(cfg, links)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, escrowHandler, flowHandler, metaHandler, wsHub)

	// Expire abandoned signing flows in the background. Flows live in
	// this process, so the sweep has to run here rather than in the worker.
	go orchestration.Sweep(ctx, cfg.FlowMaxAge)

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
	log.Info("starting API server", zap.String("addr", addr), zap.Bool("demo_mode", cfg.DemoMode))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
