package handlers

import (
	"errors"

	"github.com/bitbond/backend/internal/http/dto"
	"github.com/bitbond/backend/internal/middleware"
	"github.com/bitbond/backend/internal/orchestrator"
	"github.com/bitbond/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FlowHandler exposes the orchestration steps. Each endpoint is one explicit
// command against the caller's flow; the response always carries the flow
// snapshot so the UI can render the current step.
type FlowHandler struct {
	orchestration *services.OrchestrationService
	log           *zap.Logger
}

func NewFlowHandler(orchestration *services.OrchestrationService, log *zap.Logger) *FlowHandler {
	return &FlowHandler{orchestration: orchestration, log: log}
}

func flowError(c *fiber.Ctx, st orchestrator.Status, err error) error {
	status := fiber.StatusBadRequest
	var ve *orchestrator.ValidationError
	var fse *orchestrator.FlowStateError
	switch {
	case errors.As(err, &ve):
		status = fiber.StatusUnprocessableEntity
	case errors.As(err, &fse):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "flow": st})
}

func (h *FlowHandler) Build(c *fiber.Ctx) error {
	var req dto.BuildIntentionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	build := orchestrator.BuildRequest{
		Action:      req.Action,
		Freelancer:  req.Freelancer,
		AmountWei:   req.AmountWei,
		Description: req.Description,
		EscrowID:    req.EscrowID,
	}
	if req.Deadline != nil {
		build.Deadline = *req.Deadline
	}

	st, err := h.orchestration.Build(middleware.GetAddress(c), build)
	if err != nil {
		return flowError(c, st, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

func (h *FlowHandler) Finalize(c *fiber.Ctx) error {
	st, err := h.orchestration.Finalize(c.Context(), middleware.GetAddress(c))
	if err != nil {
		return flowError(c, st, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

func (h *FlowHandler) Sign(c *fiber.Ctx) error {
	st, err := h.orchestration.Sign(c.Context(), middleware.GetAddress(c))
	if err != nil {
		return flowError(c, st, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

func (h *FlowHandler) Broadcast(c *fiber.Ctx) error {
	st, err := h.orchestration.Broadcast(c.Context(), middleware.GetAddress(c))
	if err != nil {
		return flowError(c, st, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

func (h *FlowHandler) Cancel(c *fiber.Ctx) error {
	st := h.orchestration.Cancel(middleware.GetAddress(c))
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}

func (h *FlowHandler) Status(c *fiber.Ctx) error {
	st := h.orchestration.Status(middleware.GetAddress(c))
	return c.JSON(dto.SuccessResponse{OK: true, Data: st})
}
