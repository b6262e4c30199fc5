package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/webmail/internal/utils"
)

// CustomContextMiddleware copies the gin keys set by earlier middleware into
// the request context.
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithCustomContextFromGinRequest(c, appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
