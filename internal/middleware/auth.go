package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/auth"
	"github.com/tradebridge/backend/internal/config"
	"go.uber.org/zap"
)

const (
	CtxUserID    = "user_id"
	CtxSessionID = "session_id"

	// SessionCookie is where browser clients carry the session token;
	// API clients may use an Authorization: Bearer header instead.
	SessionCookie = "tb_session"
)

// AuthMiddleware authenticates the session token and rejects tokens whose
// session record has been revoked.
func AuthMiddleware(cfg *config.Config, sessions *auth.SessionStore, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(SessionCookie)
		if tokenStr == "" {
			authHeader := c.Get("Authorization")
			if authHeader == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing session token"})
			}
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
			}
		}

		claims, err := auth.ParseSessionToken(cfg.SessionSecret, tokenStr)
		if err != nil {
			log.Debug("session token parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
		}

		sessionID, err := uuid.Parse(claims.ID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
		}

		alive, err := sessions.Alive(c.Context(), sessionID, claims.UserID)
		if err != nil {
			log.Error("session lookup failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session check failed"})
		}
		if !alive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session revoked"})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxSessionID, sessionID)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetSessionID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxSessionID).(uuid.UUID)
	return id
}
