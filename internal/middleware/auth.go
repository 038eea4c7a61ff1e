package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/coursechat/internal/auth"
)

// ContextKeyUserID is where AuthMiddleware stores the caller's id. Handlers
// only ever need the id; the email in the token is not carried further.
const ContextKeyUserID = "user_id"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrBadHeader    = errors.New("invalid authorization format, expected: Bearer <token>")
)

// AuthMiddleware rejects requests without a valid bearer token and puts
// the caller's identity on the gin context for the handlers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthenticated(c, err.Error())
			return
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			abortUnauthenticated(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"kind":  "unauthenticated",
	})
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrBadHeader
	}
	return strings.TrimSpace(token), nil
}

// IdentifyRequest authenticates a raw HTTP request. Browsers cannot set
// headers on a WebSocket handshake, so the token may also arrive as the
// "token" query parameter.
func IdentifyRequest(r *http.Request, secret string) (uuid.UUID, error) {
	var token string
	if h := r.Header.Get("Authorization"); h != "" {
		t, err := BearerToken(h)
		if err != nil {
			return uuid.Nil, err
		}
		token = t
	} else {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return uuid.Nil, ErrMissingToken
	}

	claims, err := auth.ParseToken(token, secret)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// GetUserID returns uuid.Nil when the request was not authenticated.
func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
