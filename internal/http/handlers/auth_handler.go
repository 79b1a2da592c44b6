package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/auth"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/http/dto"
	"github.com/tradebridge/backend/internal/middleware"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/repositories"
	"go.uber.org/zap"
)

type AuthHandler struct {
	store    repositories.Store
	sessions *auth.SessionStore
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(store repositories.Store, sessions *auth.SessionStore, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, sessions: sessions, cfg: cfg, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		req.DisplayName = req.Email
	}

	if _, err := h.store.Users().GetByEmail(c.Context(), req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "email already registered"})
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		h.log.Error("password hash failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	user := &models.User{Email: req.Email, PasswordHash: hash, DisplayName: req.DisplayName}
	if err := h.store.Users().Create(c.Context(), user); err != nil {
		h.log.Error("user create failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return h.issueSession(c, user, fiber.StatusCreated)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	user, err := h.store.Users().GetByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid credentials"})
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid credentials"})
	}

	_ = h.store.Users().UpdateLastActive(c.Context(), user.ID)

	return h.issueSession(c, user, fiber.StatusOK)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	if err := h.sessions.Revoke(c.Context(), sessionID); err != nil {
		h.log.Error("session revoke failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AuthHandler) issueSession(c *fiber.Ctx, user *models.User, status int) error {
	sessionID := uuid.New()
	if err := h.sessions.Create(c.Context(), sessionID, user.ID, h.cfg.SessionTTL); err != nil {
		h.log.Error("session create failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	token, err := auth.GenerateSessionToken(h.cfg.SessionSecret, user.ID, sessionID, h.cfg.SessionTTL)
	if err != nil {
		h.log.Error("token sign failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(h.cfg.SessionTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Status(status).JSON(dto.AuthResponse{Token: token, User: user})
}
