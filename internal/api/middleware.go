package api

import (
	"time"

	"divdataset/internal"
	"divdataset/internal/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request through the application logger
func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

// rateLimit rejects requests with 429 once the token bucket is empty. A nil limiter allows everything.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			err := errors.RateLimited("Too many uploads, please retry later")
			c.AbortWithStatusJSON(HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// newUploadLimiter builds the upload token bucket; rps <= 0 disables limiting
func newUploadLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
