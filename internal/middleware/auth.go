package middleware

import (
	"strings"

	"github.com/bitbond/backend/internal/auth"
	"github.com/bitbond/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxAccountID = "account_id"
	CtxAddress   = "address"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxAccountID, claims.AccountID)
		c.Locals(CtxAddress, strings.ToLower(claims.Address))

		return c.Next()
	}
}

func GetAccountID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxAccountID).(uuid.UUID)
	return id
}

// GetAddress returns the authenticated wallet address, lowercased.
func GetAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxAddress).(string)
	return addr
}
