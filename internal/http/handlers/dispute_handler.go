package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
	"github.com/tradebridge/backend/internal/services"
	"go.uber.org/zap"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
	log            *zap.Logger
}

func NewDisputeHandler(disputeService *services.DisputeService, log *zap.Logger) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService, log: log}
}

func (h *DisputeHandler) FileDispute(c *fiber.Ctx) error {
	var req dto.FileDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	escrowID, err := uuid.Parse(req.EscrowID)
	if err != nil {
		return badRequest(c, "invalid escrow_id")
	}

	dispute, err := h.disputeService.File(c.Context(), middleware.GetUserID(c), services.FileDisputeInput{
		EscrowID:     escrowID,
		Reason:       req.Reason,
		Details:      req.Details,
		EvidenceURLs: req.EvidenceURLs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

func (h *DisputeHandler) GetDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid dispute id")
	}

	dispute, err := h.disputeService.GetByID(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

func (h *DisputeHandler) ListEscrowDisputes(c *fiber.Ctx) error {
	escrowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}

	disputes, err := h.disputeService.ListByEscrow(c.Context(), escrowID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: disputes})
}

func (h *DisputeHandler) ReviewDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid dispute id")
	}

	dispute, err := h.disputeService.StartReview(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

func (h *DisputeHandler) ResolveDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid dispute id")
	}

	var req dto.ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	dispute, err := h.disputeService.Resolve(c.Context(), id, middleware.GetUserID(c), services.ResolveDisputeInput{
		Outcome: req.Outcome,
		Notes:   req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}
