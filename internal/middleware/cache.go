package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl lets clients reuse view reads for as long as the server-side
// view cache would serve them. Responses are private to the calling client.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	header := fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds()))
	return func(c *gin.Context) {
		c.Header("Cache-Control", header)
		c.Next()
	}
}
