package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a logged 500. respond writes the error body, so
// the gateway answers in its usual envelope; with a nil respond only the status
// is sent. The session attributes are logged when Session ran before the panic.
func Recovery(logger *slog.Logger, respond gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			attrs := append([]any{
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"route", c.FullPath(),
				"path", c.Request.URL.Path,
			}, identityAttrs(c)...)
			logger.Error("Panic recovered", attrs...)

			if respond == nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			respond(c)
			c.Abort()
		}()

		c.Next()
	}
}

// identityAttrs lists the correlation id and the session attributes that are set.
func identityAttrs(c *gin.Context) []any {
	var attrs []any
	if id := GetCorrelationID(c); id != "" {
		attrs = append(attrs, "correlation_id", id)
	}
	user := GetSession(c)
	if dept, ok := user.CurrentDepartment(); ok {
		attrs = append(attrs, "department", dept)
	}
	if id, ok := user.CurrentUserID(); ok {
		attrs = append(attrs, "user_id", id)
	}
	return attrs
}
