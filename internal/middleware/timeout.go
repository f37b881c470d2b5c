package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockwatch/pkg/utils"
)

// Timeout binds a deadline to the request context. Handlers observe
// it through ctx cancellation; the middleware does not interrupt a
// running handler.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			utils.ErrorResponse(c, http.StatusRequestTimeout, "Request timeout")
			c.Abort()
		}
	}
}
