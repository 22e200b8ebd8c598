package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/bitbond/backend/internal/explorer"
	"github.com/bitbond/backend/internal/http/dto"
	"github.com/bitbond/backend/internal/middleware"
	"github.com/bitbond/backend/internal/models"
	"github.com/bitbond/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	links         *explorer.Links
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, links *explorer.Links, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, links: links, log: log}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrEscrowNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrOnlyClient), errors.Is(err, models.ErrOnlyParticipant):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrEscrowNotActive), errors.Is(err, models.ErrAlreadyReleased),
		errors.Is(err, models.ErrDeadlineNotPassed):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

func (h *EscrowHandler) toResponse(e models.Escrow) dto.EscrowResponse {
	resp := dto.EscrowResponse{
		Escrow:        e,
		ClientURL:     h.links.AddressURL(e.Client),
		FreelancerURL: h.links.AddressURL(e.Freelancer),
	}
	if e.TxHash != nil {
		resp.TxURL = h.links.TxURL(*e.TxHash)
	}
	return resp
}

// CreateEscrow is the demo-mode mutation; in chain mode creation goes
// through the orchestration flow instead.
func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	client := middleware.GetAddress(c)
	escrow, err := h.escrowService.CreateEscrow(c.Context(), client, req.Freelancer, req.AmountWei, req.Description, req.Deadline)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: h.toResponse(*escrow)})
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrowService.GetEscrow(c.Context(), id)
	if err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: h.toResponse(*escrow)})
}

// ListMine returns the caller's escrows; role=client, freelancer, or both.
func (h *EscrowHandler) ListMine(c *fiber.Ctx) error {
	address := middleware.GetAddress(c)
	ctx := c.Context()

	var (
		escrows []models.Escrow
		err     error
	)
	switch c.Query("role") {
	case "client":
		escrows, err = h.escrowService.ListByClient(ctx, address)
	case "freelancer":
		escrows, err = h.escrowService.ListByFreelancer(ctx, address)
	default:
		asClient, cErr := h.escrowService.ListByClient(ctx, address)
		if cErr != nil {
			err = cErr
			break
		}
		asFreelancer, fErr := h.escrowService.ListByFreelancer(ctx, address)
		if fErr != nil {
			err = fErr
			break
		}
		seen := make(map[uint64]bool, len(asClient))
		for _, e := range asClient {
			seen[e.ID] = true
			escrows = append(escrows, e)
		}
		for _, e := range asFreelancer {
			if !seen[e.ID] {
				escrows = append(escrows, e)
			}
		}
	}
	if err != nil {
		h.log.Error("list escrows failed", zap.String("address", address), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	responses := make([]dto.EscrowResponse, 0, len(escrows))
	for _, e := range escrows {
		responses = append(responses, h.toResponse(e))
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: responses})
}

func (h *EscrowHandler) Count(c *fiber.Ctx) error {
	n, err := h.escrowService.Count(c.Context())
	if err != nil {
		h.log.Error("escrow count failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"count": n}})
}

func (h *EscrowHandler) ReleaseFunds(c *fiber.Ctx) error {
	return h.mutate(c, h.escrowService.ReleaseFunds)
}

func (h *EscrowHandler) RaiseDispute(c *fiber.Ctx) error {
	return h.mutate(c, h.escrowService.RaiseDispute)
}

func (h *EscrowHandler) RefundAfterDeadline(c *fiber.Ctx) error {
	return h.mutate(c, h.escrowService.RefundAfterDeadline)
}

func (h *EscrowHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, id uint64, actor string) error) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	if err := op(c.Context(), id, middleware.GetAddress(c)); err != nil {
		return c.Status(statusForError(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *EscrowHandler) GetEvents(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	logs, err := h.escrowService.GetEscrowEvents(c.Context(), id)
	if err != nil {
		h.log.Error("get escrow events failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}
