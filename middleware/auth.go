// File: middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"govbook/models"
	"govbook/utils"
)

// AuthMiddleware resolves the bearer token into a Principal and stores it on the context.
// Tokens are issued by the identity service; only signature, expiry and claims are checked here.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "missing or invalid Authorization header")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			abortUnauthorized(c, "missing or invalid Authorization header")
			return
		}

		principal, err := utils.PrincipalFromToken(tokenString)
		if err != nil {
			utils.GetLogger().Debug("Rejected bearer token", zap.String("ip", getClientIP(c)), zap.Error(err))
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(utils.PrincipalContextKey, principal)
		c.Set("userID", principal.UserID)
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by AuthMiddleware.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(utils.PrincipalContextKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func abortUnauthorized(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
		Code:    "unauthorized",
		Message: "Insufficient authorization",
		Details: details,
	})
}
