package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bitbond/backend/internal/config"
	"github.com/bitbond/backend/internal/contract"
	"github.com/bitbond/backend/internal/db"
	"github.com/bitbond/backend/internal/events"
	"github.com/bitbond/backend/internal/models"
	"github.com/bitbond/backend/internal/repositories"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisCursorBlock = "chain-indexer:cursor:block"
	redisProcessed   = "chain-indexer:log:"
	processedTTL     = 7 * 24 * time.Hour
	blockBatchSize   = 2000
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !common.IsHexAddress(cfg.ContractAddress) {
		log.Fatal("CONTRACT_ADDRESS is required", zap.String("value", cfg.ContractAddress))
	}
	contractAddr := common.HexToAddress(cfg.ContractAddress)

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

	escrowRepo := repositories.NewEscrowRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	cli, err := ethclient.DialContext(ctx, cfg.ChainRPCURL)
	if err != nil {
		log.Fatal("failed to connect to chain rpc", zap.Error(err))
	}
	defer cli.Close()

	parsed, err := contract.ParseABI()
	if err != nil {
		log.Fatal("failed to parse contract abi", zap.Error(err))
	}

	log.Info("chain indexer started",
		zap.String("contract", contractAddr.Hex()),
		zap.String("rpc", cfg.ChainRPCURL),
	)

	initCursor(ctx, cli, rdb, cfg.IndexStartBlock, log)

	ticker := time.NewTicker(cfg.IndexPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := pollAndProcess(ctx, cli, parsed, contractAddr, escrowRepo, publisher, rdb, log); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down chain indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// initCursor sets the initial cursor position on first run. When
// INDEX_START_BLOCK is unset the cursor starts at the current head, so only
// logs emitted after startup are processed.
func initCursor(ctx context.Context, cli *ethclient.Client, rdb *redis.Client, startBlock uint64, log *zap.Logger) {
	existing, _ := rdb.Get(ctx, redisCursorBlock).Result()
	if existing != "" {
		log.Info("resuming from saved cursor", zap.String("block", existing))
		return
	}

	if startBlock > 0 {
		// Cursor holds the last processed block, so back off by one.
		saveCursor(ctx, rdb, startBlock-1)
		log.Info("cursor initialized from INDEX_START_BLOCK", zap.Uint64("block", startBlock))
		return
	}

	head, err := cli.BlockNumber(ctx)
	if err != nil {
		log.Warn("failed to get head block for cursor init", zap.Error(err))
		saveCursor(ctx, rdb, 0)
		return
	}

	saveCursor(ctx, rdb, head)
	log.Info("cursor initialized at current head (skipping historical logs)", zap.Uint64("block", head))
}

func loadCursor(ctx context.Context, rdb *redis.Client) uint64 {
	val, err := rdb.Get(ctx, redisCursorBlock).Result()
	if err != nil || val == "" {
		return 0
	}
	block, _ := strconv.ParseUint(val, 10, 64)
	return block
}

func saveCursor(ctx context.Context, rdb *redis.Client, block uint64) {
	rdb.Set(ctx, redisCursorBlock, strconv.FormatUint(block, 10), 0)
}

// pollAndProcess runs a single poll cycle:
// 1. Get the current head block
// 2. Filter contract logs in (cursor, head], capped at blockBatchSize
// 3. Decode and apply each event to the database mirror
// 4. Advance the cursor
func pollAndProcess(
	ctx context.Context,
	cli *ethclient.Client,
	parsed abi.ABI,
	contractAddr common.Address,
	escrowRepo *repositories.EscrowRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) error {
	head, err := cli.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get head block: %w", err)
	}

	from := loadCursor(ctx, rdb) + 1
	if from > head {
		return nil
	}
	to := head
	if to-from >= blockBatchSize {
		to = from + blockBatchSize - 1
	}

	logs, err := cli.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contractAddr},
	})
	if err != nil {
		return fmt.Errorf("filter logs (%d-%d): %w", from, to, err)
	}

	if len(logs) > 0 {
		log.Info("found new contract logs",
			zap.Int("count", len(logs)),
			zap.Uint64("from_block", from),
			zap.Uint64("to_block", to),
		)
		for _, lg := range logs {
			processLog(ctx, parsed, lg, escrowRepo, publisher, rdb, log)
		}
	}

	saveCursor(ctx, rdb, to)
	return nil
}

// processLog decodes one event and mirrors it into postgres. Logs that were
// already applied (tracked per tx hash + log index in redis) are skipped, so
// re-scanning a block range is safe.
func processLog(
	ctx context.Context,
	parsed abi.ABI,
	lg types.Log,
	escrowRepo *repositories.EscrowRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	log *zap.Logger,
) {
	if lg.Removed {
		return
	}

	logKey := fmt.Sprintf("%s%s:%d", redisProcessed, lg.TxHash.Hex(), lg.Index)
	if rdb.Exists(ctx, logKey).Val() > 0 {
		return
	}

	ev, err := contract.DecodeLog(parsed, lg)
	if err != nil {
		log.Warn("undecodable contract log",
			zap.String("tx_hash", lg.TxHash.Hex()),
			zap.Uint("index", lg.Index),
			zap.Error(err),
		)
		rdb.Set(ctx, logKey, "undecodable", processedTTL)
		return
	}

	log.Info("contract event",
		zap.String("event", ev.Name),
		zap.Uint64("escrow_id", ev.EscrowID),
		zap.String("tx_hash", ev.TxHash),
		zap.Uint64("block", ev.BlockNumber),
	)

	switch ev.Name {
	case contract.EventNameEscrowCreated:
		txHash := ev.TxHash
		err = escrowRepo.Upsert(ctx, &models.Escrow{
			ID:          ev.EscrowID,
			Client:      strings.ToLower(ev.Client.Hex()),
			Freelancer:  strings.ToLower(ev.Freelancer.Hex()),
			AmountWei:   ev.Amount.String(),
			Description: ev.Description,
			Deadline:    time.Unix(ev.Deadline.Int64(), 0).UTC(),
			Status:      models.EscrowStatusActive,
			CreatedAt:   time.Now().UTC(),
			TxHash:      &txHash,
		})
		if err == nil {
			publishEscrowEvent(ctx, publisher, events.EventEscrowCreated, ev, models.EscrowStatusActive)
		}

	case contract.EventNameFundsReleased:
		err = applyStatus(ctx, escrowRepo, publisher, ev, models.EscrowStatusReleased)

	case contract.EventNameDisputeRaised:
		err = applyStatus(ctx, escrowRepo, publisher, ev, models.EscrowStatusDisputed)

	case contract.EventNameEscrowRefunded:
		err = applyStatus(ctx, escrowRepo, publisher, ev, models.EscrowStatusRefunded)
	}

	if err != nil {
		log.Error("failed to apply contract event",
			zap.String("event", ev.Name),
			zap.Uint64("escrow_id", ev.EscrowID),
			zap.Error(err),
		)
		// Left unmarked so the next scan of this range retries.
		return
	}

	rdb.Set(ctx, logKey, ev.Name, processedTTL)
}

func applyStatus(ctx context.Context, escrowRepo *repositories.EscrowRepo, publisher events.Publisher, ev *contract.LogEvent, to string) error {
	err := escrowRepo.UpdateStatus(ctx, ev.EscrowID, models.EscrowStatusActive, to)
	if errors.Is(err, models.ErrEscrowNotActive) {
		// Already mirrored, either by a previous scan or by the API's own
		// write path racing the indexer.
		return nil
	}
	if err != nil {
		return err
	}
	publishEscrowEvent(ctx, publisher, events.EventEscrowStatusChanged, ev, to)
	return nil
}

func publishEscrowEvent(ctx context.Context, publisher events.Publisher, eventType string, ev *contract.LogEvent, status string) {
	payload := map[string]any{
		"escrow_id": ev.EscrowID,
		"status":    status,
		"tx_hash":   ev.TxHash,
		"block":     ev.BlockNumber,
	}
	if ev.Amount != nil {
		payload["amount_wei"] = ev.Amount.String()
	}
	_ = publisher.Publish(ctx, "events:escrow", events.Event{
		Type:    eventType,
		Payload: payload,
	})
}
