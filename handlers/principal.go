package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govbook/middleware"
	"govbook/models"
	"govbook/utils"
)

// principal returns the authenticated caller or writes a 401 and reports false.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Insufficient authorization", "no authenticated principal")
		c.Abort()
		return models.Principal{}, false
	}
	return p, true
}

// bindOptionalJSON binds the body into dst when one was sent.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
