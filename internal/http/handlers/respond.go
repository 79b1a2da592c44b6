package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
)

// respondError maps an application error to its HTTP status and wire shape.
func respondError(c *fiber.Ctx, err error) error {
	appErr := apperr.From(err)
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	return c.Status(appErr.Status).JSON(dto.ErrorResponse{
		Error:     appErr.Message,
		Code:      appErr.Code,
		RequestID: reqID,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: message,
		Code:  apperr.CodeValidation,
	})
}
