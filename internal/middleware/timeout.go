package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout caps request handling time by replacing the request context
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		panicCh := make(chan interface{}, 1)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					panicCh <- r
				}
				close(done)
			}()
			c.Next()
		}()

		select {
		case <-done:
			select {
			case r := <-panicCh:
				panic(r)
			default:
			}
		case <-ctx.Done():
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{
				"code":    http.StatusRequestTimeout,
				"message": "Request timeout",
			})
		}
	}
}
