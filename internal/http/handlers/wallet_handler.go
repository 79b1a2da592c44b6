package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
	"github.com/tradebridge/backend/internal/services"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

func (h *WalletHandler) GetBalances(c *fiber.Ctx) error {
	balances, err := h.walletService.Balances(c.Context(), middleware.GetUserID(c))
	if err != nil {
		h.log.Error("balances failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: balances})
}

func (h *WalletHandler) ListTransactions(c *fiber.Ctx) error {
	limit, offset := 0, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	txs, err := h.walletService.Transactions(c.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		h.log.Error("transactions failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}
