package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIP returns the address rate limits are keyed on. Forwarding headers
// are honoured only when they hold a parseable IP; anything else falls back
// to the socket address so junk headers cannot mint fresh limiter keys.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(c.GetHeader("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	addr := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
