package middleware

import (
	"github.com/gin-gonic/gin"

	"govbook/models"
	"govbook/services/authz"
	"govbook/utils"
)

// RequireRole rejects callers whose role is not listed. It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abortUnauthorized(c, "no authenticated principal")
			return
		}
		if err := authz.Require(p, roles...); err != nil {
			utils.RespondError(c, "Operation not permitted", err)
			return
		}
		c.Next()
	}
}
