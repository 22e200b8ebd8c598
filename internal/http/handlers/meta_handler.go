package handlers

import (
	"github.com/bitbond/backend/internal/config"
	"github.com/bitbond/backend/internal/contract"
	"github.com/bitbond/backend/internal/explorer"
	"github.com/bitbond/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct {
	cfg   *config.Config
	links *explorer.Links
}

func NewMetaHandler(cfg *config.Config, links *explorer.Links) *MetaHandler {
	return &MetaHandler{cfg: cfg, links: links}
}

// Contract returns what the frontend needs to talk to the deployed contract.
func (h *MetaHandler) Contract(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ContractMetaResponse{
		Address:     h.cfg.ContractAddress,
		ChainID:     h.cfg.ChainID,
		DemoMode:    h.cfg.DemoMode,
		ExplorerURL: h.links.AddressURL(h.cfg.ContractAddress),
	}})
}

// ABI serves the embedded contract ABI JSON.
func (h *MetaHandler) ABI(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/json")
	return c.SendString(contract.BitBondEscrowABI)
}
