package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/coursechat/internal/middleware"
	"github.com/lalith-99/coursechat/internal/repository"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(users repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// GetMe handles GET /v1/users/me.
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user", "kind": KindInternal})
		return
	}

	// A valid token for a deleted user.
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "kind": KindNotFound})
		return
	}

	c.JSON(http.StatusOK, user)
}
