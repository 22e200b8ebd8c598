package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bitbond/backend/internal/config"
	"github.com/bitbond/backend/internal/db"
	"github.com/bitbond/backend/internal/events"
	"github.com/bitbond/backend/internal/models"
	"github.com/bitbond/backend/internal/repositories"
	"github.com/bitbond/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisRefundNotified = "worker:refund-notified:"
	refundNotifyTTL     = 24 * time.Hour
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	escrowRepo := repositories.NewEscrowRepo(pool)
	nonceRepo := repositories.NewNonceRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	escrowService := services.NewEscrowService(escrowRepo, nil, auditRepo, publisher, log)

	log.Info("worker started")

	// Run jobs on tickers
	deadlineTicker := time.NewTicker(cfg.DeadlineScanInterval)
	nonceTicker := time.NewTicker(10 * time.Minute)
	defer deadlineTicker.Stop()
	defer nonceTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-deadlineTicker.C:
			runDeadlineScan(ctx, escrowService, auditRepo, publisher, rdb, log)
		case <-nonceTicker.C:
			runNonceCleanup(ctx, nonceRepo, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runDeadlineScan finds active escrows whose deadline has passed and
// announces that the client may now reclaim the funds. Refunds themselves
// stay client-initiated: the contract only accepts refundAfterDeadline from
// the client's own wallet, so the worker can only notify.
func runDeadlineScan(
	ctx context.Context,
	escrowService *services.EscrowService,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) {
	escrows, err := escrowService.ListRefundEligible(ctx)
	if err != nil {
		log.Error("failed to list refund-eligible escrows", zap.Error(err))
		return
	}

	for _, escrow := range escrows {
		// Notify each escrow once a day at most while it stays unclaimed.
		key := redisRefundNotified + strconv.FormatUint(escrow.ID, 10)
		if rdb.Exists(ctx, key).Val() > 0 {
			continue
		}

		log.Info("escrow past deadline, refund available",
			zap.Uint64("escrow_id", escrow.ID),
			zap.String("client", escrow.Client),
			zap.Time("deadline", escrow.Deadline),
		)

		entityID := strconv.FormatUint(escrow.ID, 10)
		if err := auditRepo.Log(ctx, models.AuditLog{
			ActorType:  "system",
			Action:     "escrow_refund_available",
			EntityType: "escrow",
			EntityID:   &entityID,
			Meta: map[string]any{
				"deadline": escrow.Deadline,
				"client":   escrow.Client,
			},
		}); err != nil {
			log.Error("failed to write audit entry", zap.Uint64("escrow_id", escrow.ID), zap.Error(err))
			continue
		}

		_ = publisher.Publish(ctx, "events:escrow", events.Event{
			Type: events.EventEscrowStatusChanged,
			Payload: map[string]any{
				"escrow_id":        escrow.ID,
				"status":           escrow.Status,
				"refund_available": true,
				"client":           escrow.Client,
				"deadline":         escrow.Deadline.Format(time.RFC3339),
			},
		})

		rdb.Set(ctx, key, fmt.Sprintf("notified:%s", time.Now().UTC().Format(time.RFC3339)), refundNotifyTTL)
	}
}

func runNonceCleanup(ctx context.Context, nonceRepo *repositories.NonceRepo, log *zap.Logger) {
	n, err := nonceRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error("failed to delete expired nonces", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("deleted expired auth nonces", zap.Int64("count", n))
	}
}
