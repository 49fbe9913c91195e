package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskrelay/internal/service"
)

// TraceMiddleware propagates an incoming trace id, or mints one, and puts it
// on the request context so the service layer can stamp it onto outbox rows.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("TraceID", traceID)
		c.Request = c.Request.WithContext(service.WithTraceID(c.Request.Context(), traceID))
		c.Writer.Header().Set("X-Trace-ID", traceID)
		c.Next()
	}
}
