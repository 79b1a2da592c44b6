package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/http/dto"
)

type MetaHandler struct {
	cfg *config.Config
}

func NewMetaHandler(cfg *config.Config) *MetaHandler {
	return &MetaHandler{cfg: cfg}
}

// GetClientConfig exposes the polling cadence and vocabulary clients need.
func (h *MetaHandler) GetClientConfig(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ClientConfigResponse{
		PollIntervalSeconds: int(h.cfg.ChatPollInterval.Seconds()),
		MessagePageLimit:    h.cfg.MessagePageLimit,
		SupportedCurrencies: h.cfg.SupportedCurrencies,
		DisputeReasons:      h.cfg.DisputeReasons,
	}})
}
