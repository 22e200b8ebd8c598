package handlers

import (
	"github.com/bitbond/backend/internal/auth"
	"github.com/bitbond/backend/internal/config"
	"github.com/bitbond/backend/internal/http/dto"
	"github.com/bitbond/backend/internal/middleware"
	"github.com/bitbond/backend/internal/repositories"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	accountRepo *repositories.AccountRepo
	nonceRepo   *repositories.NonceRepo
	cfg         *config.Config
	log         *zap.Logger
}

func NewAuthHandler(accountRepo *repositories.AccountRepo, nonceRepo *repositories.NonceRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accountRepo: accountRepo, nonceRepo: nonceRepo, cfg: cfg, log: log}
}

// Nonce issues a one-shot challenge the wallet signs. The response carries
// the exact message so the client never has to rebuild it.
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	address := c.Query("address")
	if !common.IsHexAddress(address) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address query parameter must be a 0x address"})
	}

	nonce, err := h.nonceRepo.Create(c.Context(), uuid.NewString(), h.cfg.NonceMaxAge)
	if err != nil {
		h.log.Error("failed to create auth nonce", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.NonceResponse{
		Nonce:     nonce.Nonce,
		Message:   auth.ProofMessage(h.cfg.ProofDomain, address, nonce.Nonce),
		ExpiresAt: nonce.ExpiresAt,
	})
}

// Verify checks the signed challenge, registers the account and issues the
// session token.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.AuthVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Address == "" || req.Nonce == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, nonce and signature are required"})
	}

	if err := auth.VerifyWalletProof(h.cfg.ProofDomain, req.Address, req.Nonce, req.Signature); err != nil {
		h.log.Debug("wallet proof rejected", zap.String("address", req.Address), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "signature verification failed"})
	}

	// Consume after the signature checks out; a bad signature must not burn
	// the nonce.
	if err := h.nonceRepo.Consume(c.Context(), req.Nonce, req.Address); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "nonce expired or already used"})
	}

	account, err := h.accountRepo.UpsertByAddress(c.Context(), req.Address)
	if err != nil {
		h.log.Error("failed to upsert account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, account.ID, account.Address, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{Token: token, Account: account})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	account, err := h.accountRepo.GetByID(c.Context(), middleware.GetAccountID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "account not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

func (h *AuthHandler) Ping(c *fiber.Ctx) error {
	_ = h.accountRepo.UpdateLastActive(c.Context(), middleware.GetAccountID(c))
	return c.JSON(dto.SuccessResponse{OK: true})
}
