package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/models"
)

// TokenHeader is the primary authentication header.
const TokenHeader = "X-AI-Eduminer-Token"

// identityKey is the gin context key the rate limiter reads.
const identityKey = "api_token"

// Auth returns token authentication middleware.
//
// Accepted header styles, checked in order:
//
//	X-AI-Eduminer-Token: <token>
//	X-API-Key: <token>
//	Authorization: Bearer <token>
//
// If tokens is empty, the middleware is a no-op (open access).
func Auth(tokens []string) gin.HandlerFunc {
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "missing token: provide "+TokenHeader+", X-API-Key or Authorization: Bearer <token>")
			return
		}
		if !known(valid, token) {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(identityKey, token)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}

func known(tokens []string, token string) bool {
	for _, t := range tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

func extractToken(c *gin.Context) string {
	if t := c.GetHeader(TokenHeader); t != "" {
		return t
	}
	if t := c.GetHeader("X-API-Key"); t != "" {
		return t
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
