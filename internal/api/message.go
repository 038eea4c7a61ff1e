package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/middleware"
	"github.com/lalith-99/coursechat/internal/models"
	"github.com/lalith-99/coursechat/internal/realtime"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messages MessageService
	realtime Realtime
	logger   *zap.Logger
}

func NewMessageHandler(messages MessageService, rt Realtime, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, realtime: rt, logger: logger}
}

type messageRequest struct {
	Content string `json:"content"`
}

// List handles GET /v1/chats/:chatId/messages?count=N.
//
// Messages come back oldest first. A missing count means the default
// window; a count above the maximum is capped.
func (h *MessageHandler) List(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}

	count := 0
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "count must be a positive integer", "count")
			return
		}
		count = n
	}

	views, err := h.messages.History(c.Request.Context(), chatID, middleware.GetUserID(c), count)
	if err != nil {
		respondError(c, h.logger, "list messages", err)
		return
	}
	if views == nil {
		views = []*models.MessageView{}
	}
	c.JSON(http.StatusOK, views)
}

// Create handles POST /v1/chats/:chatId/messages. It takes the same path
// as a realtime send, so live members receive the message too.
func (h *MessageHandler) Create(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", "")
		return
	}

	view, err := h.messages.Send(c.Request.Context(), chatID, middleware.GetUserID(c), req.Content)
	if err != nil {
		respondError(c, h.logger, "send message", err)
		return
	}
	h.emit(c, view.ChatID, realtime.EventReceiveMessage, view)
	c.JSON(http.StatusCreated, view)
}

// Edit handles PATCH /v1/chats/:chatId/messages/:messageId.
func (h *MessageHandler) Edit(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}
	messageID, ok := pathMessageID(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", "")
		return
	}

	view, err := h.messages.Edit(c.Request.Context(), chatID, middleware.GetUserID(c), messageID, req.Content)
	if err != nil {
		respondError(c, h.logger, "edit message", err)
		return
	}
	h.emit(c, chatID, realtime.EventMessageEdited, view)
	c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /v1/chats/:chatId/messages/:messageId. The row is
// kept and hidden from every read.
func (h *MessageHandler) Delete(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}
	messageID, ok := pathMessageID(c)
	if !ok {
		return
	}

	msg, err := h.messages.Delete(c.Request.Context(), chatID, middleware.GetUserID(c), messageID)
	if err != nil {
		respondError(c, h.logger, "delete message", err)
		return
	}
	h.emit(c, chatID, realtime.EventMessageDeleted, realtime.DeletedMessage{ID: msg.ID, ChatID: chatID})
	c.Status(http.StatusNoContent)
}

// emit pushes a REST mutation to live connections. The mutation is already
// committed, so a failed publish is logged rather than returned.
func (h *MessageHandler) emit(c *gin.Context, chatID uuid.UUID, eventType realtime.EventType, data any) {
	if err := h.realtime.Emit(c.Request.Context(), chatID, eventType, data); err != nil {
		h.logger.Error("publish event failed",
			zap.String("type", string(eventType)),
			zap.String("chat_id", chatID.String()),
			zap.Error(err),
		)
	}
}

func pathMessageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "invalid messageId", "messageId")
		return 0, false
	}
	return id, true
}
