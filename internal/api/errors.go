package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/coursechat/internal/service"
	"go.uber.org/zap"
)

// Stable error kinds in every error body.
const (
	KindNotFound        = "not_found"
	KindForbidden       = "forbidden"
	KindConflict        = "conflict"
	KindValidation      = "validation"
	KindUnauthenticated = "unauthenticated"
	KindInternal        = "internal"
)

// respondError writes the error body for err. Errors the service layer did
// not classify are logged and answered with a bare 500.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		badRequest(c, verr.Message, verr.Field)
	case errors.Is(err, service.ErrValidation):
		badRequest(c, "invalid input", "")
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "kind": KindNotFound})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this chat", "kind": KindForbidden})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists", "kind": KindConflict})
	default:
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed", "kind": KindInternal})
	}
}

func badRequest(c *gin.Context, msg, field string) {
	body := gin.H{"error": msg, "kind": KindValidation}
	if field != "" {
		body["field"] = field
	}
	c.JSON(http.StatusBadRequest, body)
}
