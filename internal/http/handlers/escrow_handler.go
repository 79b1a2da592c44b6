package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
	"github.com/tradebridge/backend/internal/services"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		return badRequest(c, "invalid chat_id")
	}

	input := services.CreateEscrowInput{
		ChatID:            chatID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		TradeDescription:  req.TradeDescription,
		ReleaseConditions: req.ReleaseConditions,
		ReleaseDate:       req.ReleaseDate,
	}
	if req.ExporterID != nil {
		exporterID, err := uuid.Parse(*req.ExporterID)
		if err != nil {
			return badRequest(c, "invalid exporter_id")
		}
		input.ExporterID = &exporterID
	}

	escrow, err := h.escrowService.Create(c.Context(), middleware.GetUserID(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}

	escrow, err := h.escrowService.GetByID(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) ListChatEscrows(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid chat id")
	}

	escrows, err := h.escrowService.ListByChat(c.Context(), chatID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrows})
}

func (h *EscrowHandler) FundEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}

	escrow, err := h.escrowService.Fund(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) ReleaseEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid escrow id")
	}

	escrow, err := h.escrowService.Release(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}
