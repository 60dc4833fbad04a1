package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	clientIDKey    = "clientId"
	sessionIDKey   = "sessionId"
	clientIDHeader = "X-Client-Id"
	maxClientIDLen = 128
)

// ClientID identifies the browser session issuing the request. The storefront
// sends a stable X-Client-Id; without one the client IP stands in for rate
// limiting and logs, but no session is recorded.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(clientIDHeader))
		if len(id) > maxClientIDLen {
			id = id[:maxClientIDLen]
		}
		if id != "" {
			c.Set(sessionIDKey, id)
		} else {
			id = "ip:" + c.ClientIP()
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// SessionIDFromContext returns the caller-supplied X-Client-Id, or "" when
// the request carried none. Customers behind one NAT share an IP, so only
// this value may tie requests to a single browser.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}

// ClientIDFromContext fetches the client ID set by the ClientID middleware.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
