package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
	"github.com/tradebridge/backend/internal/repositories"
	"go.uber.org/zap"
)

type UserHandler struct {
	store repositories.Store
	log   *zap.Logger
}

func NewUserHandler(store repositories.Store, log *zap.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	user, err := h.store.Users().GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
	}

	_ = h.store.Users().UpdateLastActive(c.Context(), userID)

	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}
