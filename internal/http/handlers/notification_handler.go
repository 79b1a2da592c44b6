package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
	"github.com/tradebridge/backend/internal/services"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	log                 *zap.Logger
}

func NewNotificationHandler(notificationService *services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, log: log}
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
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

	items, err := h.notificationService.List(c.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		h.log.Error("list notifications failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: items})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	if err := h.notificationService.MarkRead(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
