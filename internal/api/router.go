package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/coursechat/internal/middleware"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Chats       *ChatHandler
	Memberships *MembershipHandler
	Messages    *MessageHandler
	Realtime    Realtime
	Health      HealthChecker
}

// NewRouter builds the gin engine with every /v1 route.
func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	r.GET("/v1/health", healthHandler(h.Health))

	public := r.Group("/v1/auth")
	public.POST("/signup", h.Auth.Signup)
	public.POST("/login", h.Auth.Login)

	// The WebSocket handshake does its own identification because browsers
	// cannot send an Authorization header on it.
	r.GET("/v1/ws", wsHandler(h.Realtime, jwtSecret))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtSecret))

	v1.GET("/users/me", h.Users.GetMe)

	v1.POST("/chats/course/:courseId", h.Chats.Create)
	v1.GET("/chats/course/:courseId", h.Chats.View)
	v1.GET("/chats/mine", h.Chats.Mine)
	v1.GET("/chats/:chatId", h.Chats.Get)
	v1.DELETE("/chats/:chatId", h.Chats.Delete)

	v1.GET("/chats/:chatId/join", h.Memberships.Join)
	v1.POST("/chats/:chatId/leave", h.Memberships.Leave)
	v1.GET("/chats/:chatId/members", h.Memberships.ListMembers)

	v1.GET("/chats/:chatId/messages", h.Messages.List)
	v1.POST("/chats/:chatId/messages", h.Messages.Create)
	v1.PATCH("/chats/:chatId/messages/:messageId", h.Messages.Edit)
	v1.DELETE("/chats/:chatId/messages/:messageId", h.Messages.Delete)

	return r
}

func healthHandler(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func wsHandler(rt Realtime, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.IdentifyRequest(c.Request, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing token",
				"kind":  KindUnauthenticated,
			})
			return
		}
		c.Set(middleware.ContextKeyUserID, userID)
		rt.Serve(c.Writer, c.Request, userID)
	}
}
