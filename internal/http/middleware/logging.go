// README: Request logging middleware.
package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s status=%d caller=%s took=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), CallerUID(c), time.Since(start).Round(time.Microsecond))
	}
}
