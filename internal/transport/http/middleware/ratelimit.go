package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"gp-directory/internal/core/limiter"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		fail(c, http.StatusTooManyRequests, "too many requests")
	}
}

// LoginRateLimit 按客户端地址计数登录提交；超限交给 onLimited 渲染 429
func LoginRateLimit(w *limiter.Window, onLimited func(c *gin.Context, retryAfter time.Duration)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := w.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		LoginAttempts.WithLabelValues("limited").Inc()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		if onLimited != nil {
			onLimited(c, retry)
			c.Abort()
			return
		}
		fail(c, http.StatusTooManyRequests, "too many login attempts")
	}
}
