package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/id"
)

const (
	// RequestIDHeader carries the request id in both directions
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID tags each request with an id, reusing a well-formed incoming one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid, ok := id.ParseRequestID(c.GetHeader(RequestIDHeader))
		if !ok {
			rid = id.NewRequestID()
		}
		c.Set(requestIDKey, rid.String())
		c.Header(RequestIDHeader, rid.String())
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or ""
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
