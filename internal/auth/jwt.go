package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// issuer is stamped on every token and required on parse, so a token
// minted by another service sharing the secret is not accepted here.
const issuer = "coursechat"

// Claims is the payload of every access token. The middleware and the
// WebSocket handshake both read UserID out of it, so neither touches the
// database to learn who is calling.
//
// Why embed jwt.RegisteredClaims?
//   - ExpiresAt, IssuedAt and Issuer come with it, and the v5 parser
//     validates them for us (WithExpirationRequired, WithIssuer).
//   - Subject carries the user id too, for tools that only read the
//     standard fields.
//
// Membership is deliberately not in the token: it changes on every join
// and leave, and the gateway must see a leave immediately.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for the given user.
//
// Why HS256?
//   - One service both issues and verifies, so a shared secret is enough
//     and there is no key pair to distribute.
//   - Symmetric signing is cheap on the WebSocket handshake path, which
//     every reconnecting tab hits.
func GenerateToken(userID uuid.UUID, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature, expiry and issuer of a token and
// returns its claims. Only HMAC signing is accepted.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token has no user id")
	}
	return claims, nil
}
