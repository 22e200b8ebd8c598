package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bitbond/backend/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// EthClient talks to the deployed BitBondEscrow contract over RPC.
// Reads work without a key; writes require a relayer private key.
type EthClient struct {
	client    *ethclient.Client
	contract  *bind.BoundContract
	abi       abi.ABI
	address   common.Address
	chainID   *big.Int
	transacts *bind.TransactOpts
	log       *zap.Logger
}

type EthClientConfig struct {
	RPCURL          string
	ContractAddress string
	PrivateKeyHex   string // optional; empty means read-only
}

func NewEthClient(ctx context.Context, cfg EthClientConfig, log *zap.Logger) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", cfg.ContractAddress)
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	bound := bind.NewBoundContract(address, parsed, cli, cli, cli)

	c := &EthClient{
		client:   cli,
		contract: bound,
		abi:      parsed,
		address:  address,
		log:      log,
	}

	if cfg.PrivateKeyHex != "" {
		pk, err := parsePrivateKey(cfg.PrivateKeyHex)
		if err != nil {
			return nil, err
		}
		chainID, err := cli.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
		if err != nil {
			return nil, fmt.Errorf("transactor: %w", err)
		}
		txOpts.GasLimit = 0 // let node estimate
		c.chainID = chainID
		c.transacts = txOpts
	}

	return c, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func (c *EthClient) ContractAddress() string {
	return c.address.Hex()
}

func (c *EthClient) ChainID() *big.Int {
	return c.chainID
}

func (c *EthClient) Ping(ctx context.Context) error {
	_, err := c.client.BlockNumber(ctx)
	return err
}

// rawEscrow mirrors the tuple layout of BitBondEscrow.Escrow.
type rawEscrow struct {
	Id          *big.Int
	Client      common.Address
	Freelancer  common.Address
	Amount      *big.Int
	Description string
	Deadline    *big.Int
	Status      uint8
	CreatedAt   *big.Int
	TxHash      string
}

func (c *EthClient) GetEscrow(ctx context.Context, id uint64) (*models.Escrow, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getEscrow", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, mapRevertError(c.abi, err)
	}
	raw := *abi.ConvertType(out[0], new(rawEscrow)).(*rawEscrow)
	if raw.Id.Sign() == 0 && raw.Client == (common.Address{}) {
		// The contract returns a zero record for unknown ids; surface it
		// as an explicit not-found instead.
		return nil, models.ErrEscrowNotFound
	}
	return decodeEscrow(raw), nil
}

func decodeEscrow(raw rawEscrow) *models.Escrow {
	e := &models.Escrow{
		ID:          raw.Id.Uint64(),
		Client:      raw.Client.Hex(),
		Freelancer:  raw.Freelancer.Hex(),
		AmountWei:   raw.Amount.String(),
		Description: raw.Description,
		Deadline:    time.Unix(raw.Deadline.Int64(), 0).UTC(),
		CreatedAt:   time.Unix(raw.CreatedAt.Int64(), 0).UTC(),
	}
	if status, ok := models.EscrowStatusFromCode(raw.Status); ok {
		e.Status = status
	}
	if raw.TxHash != "" {
		h := raw.TxHash
		e.TxHash = &h
	}
	return e
}

func (c *EthClient) GetClientEscrows(ctx context.Context, address string) ([]uint64, error) {
	return c.escrowIDs(ctx, "getClientEscrows", address)
}

func (c *EthClient) GetFreelancerEscrows(ctx context.Context, address string) ([]uint64, error) {
	return c.escrowIDs(ctx, "getFreelancerEscrows", address)
}

func (c *EthClient) escrowIDs(ctx context.Context, method, address string) ([]uint64, error) {
	if !common.IsHexAddress(address) {
		return nil, models.ErrInvalidAddress
	}
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, common.HexToAddress(address))
	if err != nil {
		return nil, mapRevertError(c.abi, err)
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, v.Uint64())
	}
	return ids, nil
}

func (c *EthClient) GetEscrowCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getEscrowCount")
	if err != nil {
		return 0, mapRevertError(c.abi, err)
	}
	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return count.Uint64(), nil
}

func (c *EthClient) CreateEscrow(ctx context.Context, freelancer, description string, deadline int64, amountWei string) (*TxResult, error) {
	if c.transacts == nil {
		return nil, fmt.Errorf("client is read-only: no relayer key configured")
	}
	if !common.IsHexAddress(freelancer) {
		return nil, models.ErrInvalidAddress
	}
	amount, ok := new(big.Int).SetString(amountWei, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, models.ErrInvalidAmount
	}

	opts := *c.transacts
	opts.Context = ctx
	opts.Value = amount

	tx, err := c.contract.Transact(&opts, "createEscrow",
		common.HexToAddress(freelancer), description, big.NewInt(deadline))
	if err != nil {
		return nil, mapRevertError(c.abi, err)
	}
	c.log.Info("createEscrow submitted", zap.String("tx_hash", tx.Hash().Hex()))
	return &TxResult{TxHash: tx.Hash().Hex()}, nil
}

func (c *EthClient) ReleaseFunds(ctx context.Context, escrowID uint64) (*TxResult, error) {
	return c.transactByID(ctx, "releaseFunds", escrowID)
}

func (c *EthClient) RaiseDispute(ctx context.Context, escrowID uint64) (*TxResult, error) {
	return c.transactByID(ctx, "raiseDispute", escrowID)
}

func (c *EthClient) RefundAfterDeadline(ctx context.Context, escrowID uint64) (*TxResult, error) {
	return c.transactByID(ctx, "refundAfterDeadline", escrowID)
}

func (c *EthClient) transactByID(ctx context.Context, method string, escrowID uint64) (*TxResult, error) {
	if c.transacts == nil {
		return nil, fmt.Errorf("client is read-only: no relayer key configured")
	}
	opts := *c.transacts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, new(big.Int).SetUint64(escrowID))
	if err != nil {
		return nil, mapRevertError(c.abi, err)
	}
	c.log.Info("transaction submitted",
		zap.String("method", method),
		zap.Uint64("escrow_id", escrowID),
		zap.String("tx_hash", tx.Hash().Hex()),
	)
	return &TxResult{TxHash: tx.Hash().Hex()}, nil
}

// WaitMined polls for the transaction receipt until it lands or ctx expires.
func (c *EthClient) WaitMined(ctx context.Context, txHash string, poll time.Duration) error {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	hash := common.HexToHash(txHash)
	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if receipt != nil {
			if receipt.Status == 0 {
				return fmt.Errorf("transaction %s reverted", txHash)
			}
			return nil
		}
		if err != nil && !strings.Contains(err.Error(), "not found") {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
