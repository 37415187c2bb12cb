package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// TokenValidator validates session tokens.
type TokenValidator interface {
	ValidateToken(tokenStr string) (*service.Claims, error)
}

// ParseToken validates the bearer token when one is present and stores its
// claims. A missing or invalid token is not an error here: the request simply
// has no session and the gate decides what to do with it.
func ParseToken(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := extractToken(c); tokenStr != "" {
			if claims, err := tokens.ValidateToken(tokenStr); err == nil {
				c.Set(ContextKeyClaims, claims)
			}
		}
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// SessionID returns the client session id of the request, or "".
func SessionID(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.ID
	}
	return ""
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Browsers cannot set headers on a WebSocket upgrade.
	return c.Query("token")
}
