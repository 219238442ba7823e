package middleware

import (
	"github.com/ErlanBelekov/xblt/internal/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID attaches a request ID to the context and the response. A
// well-formed incoming X-Request-ID is kept so a caller can correlate an
// OTP request or OAuth callback with server logs; anything else is
// replaced with a fresh UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if !requestid.Valid(id) {
			id = requestid.New()
		}

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
