package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/middleware"
	"github.com/lalith-99/coursechat/internal/models"
	"go.uber.org/zap"
)

// ChatHandler serves course chat lookup, creation and deletion.
type ChatHandler struct {
	chats    ChatDirectory
	members  MembershipService
	realtime Realtime
	logger   *zap.Logger
}

func NewChatHandler(chats ChatDirectory, members MembershipService, rt Realtime, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, members: members, realtime: rt, logger: logger}
}

// Name is validated by the directory after trimming, so no binding tag.
type createChatRequest struct {
	Name string `json:"name"`
}

type chatResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Create handles POST /v1/chats/course/:courseId.
//
// This is the explicit create: a caller who already has a chat for the
// course gets 409 and the existing chat id is not returned.
func (h *ChatHandler) Create(c *gin.Context) {
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", "")
		return
	}

	chat, err := h.chats.CreateCourseChat(c.Request.Context(), courseID, middleware.GetUserID(c), req.Name)
	if err != nil {
		respondError(c, h.logger, "create chat", err)
		return
	}
	h.attach(c, chat)
	c.JSON(http.StatusCreated, chatResponse{ID: chat.ID, Name: chat.Name})
}

// View handles GET /v1/chats/course/:courseId?name=. Opening a course page
// ensures the caller's chat exists; the name only matters the first time.
func (h *ChatHandler) View(c *gin.Context) {
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}

	chat, err := h.chats.GetOrCreateCourseChat(c.Request.Context(), courseID, middleware.GetUserID(c), c.Query("name"))
	if err != nil {
		respondError(c, h.logger, "get course chat", err)
		return
	}
	h.attach(c, chat)
	c.JSON(http.StatusOK, chatResponse{ID: chat.ID, Name: chat.Name})
}

// attach subscribes live connections of the chat's members. A failure here
// only delays realtime delivery until the next reconnect.
func (h *ChatHandler) attach(c *gin.Context, chat *models.Chat) {
	if err := h.realtime.AttachChat(c.Request.Context(), chat.ID); err != nil {
		h.logger.Warn("attach chat to live connections failed",
			zap.String("chat_id", chat.ID.String()),
			zap.Error(err),
		)
	}
}

// Mine handles GET /v1/chats/mine.
func (h *ChatHandler) Mine(c *gin.Context) {
	chats, err := h.members.ChatsOf(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, "list chats", err)
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	c.JSON(http.StatusOK, chats)
}

// Get handles GET /v1/chats/:chatId.
func (h *ChatHandler) Get(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}

	chat, err := h.chats.ChatForMember(c.Request.Context(), chatID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, "get chat", err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// Delete handles DELETE /v1/chats/:chatId. Only the author may delete.
func (h *ChatHandler) Delete(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}

	if err := h.chats.DeleteChat(c.Request.Context(), chatID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, "delete chat", err)
		return
	}
	h.realtime.DetachChat(c.Request.Context(), chatID)
	c.Status(http.StatusNoContent)
}

// pathUUID parses a path parameter, answering 400 itself on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name, name)
		return uuid.Nil, false
	}
	return id, true
}
