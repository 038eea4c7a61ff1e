package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/coursechat/internal/middleware"
	"github.com/lalith-99/coursechat/internal/models"
	"go.uber.org/zap"
)

// MembershipHandler handles joining and leaving chats.
type MembershipHandler struct {
	members  MembershipService
	realtime Realtime
	logger   *zap.Logger
}

func NewMembershipHandler(members MembershipService, rt Realtime, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{members: members, realtime: rt, logger: logger}
}

// Join handles GET /v1/chats/:chatId/join. Joining twice returns the same
// membership.
func (h *MembershipHandler) Join(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	m, err := h.members.Join(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, h.logger, "join chat", err)
		return
	}
	h.realtime.AttachMember(c.Request.Context(), chatID, userID)
	c.JSON(http.StatusOK, m)
}

// Leave handles POST /v1/chats/:chatId/leave. Leaving a chat you are not
// in is not an error.
func (h *MembershipHandler) Leave(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	if _, err := h.members.Leave(c.Request.Context(), chatID, userID); err != nil {
		respondError(c, h.logger, "leave chat", err)
		return
	}
	h.realtime.DetachMember(c.Request.Context(), chatID, userID)
	c.Status(http.StatusNoContent)
}

// ListMembers handles GET /v1/chats/:chatId/members.
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	chatID, ok := pathUUID(c, "chatId")
	if !ok {
		return
	}

	members, err := h.members.Members(c.Request.Context(), chatID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, "list members", err)
		return
	}
	if members == nil {
		members = []models.Membership{}
	}
	c.JSON(http.StatusOK, members)
}
