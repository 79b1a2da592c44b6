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

type ChatHandler struct {
	chatService *services.ChatService
	log         *zap.Logger
}

func NewChatHandler(chatService *services.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: log}
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	var req dto.CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	input := services.CreateChatInput{
		Name:     req.Name,
		Type:     req.Type,
		Metadata: req.Metadata,
	}
	for _, p := range req.Participants {
		userID, err := uuid.Parse(p.UserID)
		if err != nil {
			return badRequest(c, "invalid participant user_id")
		}
		input.Participants = append(input.Participants, services.ParticipantInput{UserID: userID, Role: p.Role})
	}

	chat, err := h.chatService.CreateChat(c.Context(), middleware.GetUserID(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: chat})
}

func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	chats, err := h.chatService.ListChats(c.Context(), middleware.GetUserID(c))
	if err != nil {
		h.log.Error("list chats failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: chats})
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid chat id")
	}

	chat, err := h.chatService.GetChat(c.Context(), chatID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: chat})
}

func (h *ChatHandler) AddParticipant(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid chat id")
	}

	var req dto.AddParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return badRequest(c, "invalid user_id")
	}

	p, err := h.chatService.AddParticipant(c.Context(), chatID, middleware.GetUserID(c), userID, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: p})
}

func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid chat id")
	}

	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	input := services.PostMessageInput{
		Content:     req.Content,
		MessageType: req.MessageType,
		Metadata:    req.Metadata,
	}
	if req.ReplyToMessageID != nil {
		replyTo, err := uuid.Parse(*req.ReplyToMessageID)
		if err != nil {
			return badRequest(c, "invalid reply_to_message_id")
		}
		input.ReplyToMessageID = &replyTo
	}

	msg, err := h.chatService.PostMessage(c.Context(), chatID, middleware.GetUserID(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: msg})
}

// ListMessages serves the polling feed: ascending order, optional limit and
// before=<message id> cursor for backfill.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid chat id")
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	var before *uuid.UUID
	if v := c.Query("before"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid before cursor")
		}
		before = &id
	}

	msgs, err := h.chatService.ListMessages(c.Context(), chatID, middleware.GetUserID(c), limit, before)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: msgs})
}

func (h *ChatHandler) EditMessage(c *fiber.Ctx) error {
	messageID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid message id")
	}

	var req dto.EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	msg, err := h.chatService.EditMessage(c.Context(), messageID, middleware.GetUserID(c), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: msg})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid chat id")
	}

	var req dto.MarkReadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		return badRequest(c, "invalid message_id")
	}

	if err := h.chatService.MarkRead(c.Context(), chatID, middleware.GetUserID(c), messageID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
