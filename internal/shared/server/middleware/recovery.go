package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"printshop-backend/internal/shared/server/respond"
	"printshop-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into the 500 envelope. The panic is logged
// with the request, client and analysis it happened in.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"client_id":  ClientIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if id := c.GetString("analysisId"); id != "" {
				fields["analysis_id"] = id
			}
			telemetry.Error("http.panic", fields)

			c.Set("errorKind", "panic")
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", gin.H{
				"retryable": true,
				"tips":      []string{"Try again in a moment"},
			})
		}()
		c.Next()
	}
}
