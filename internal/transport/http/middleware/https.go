package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ForceHTTPS 反向代理后部署时按 X-Forwarded-Proto 判断，非 https 一律 301
func ForceHTTPS(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Next()
			return
		}
		target := "https://" + c.Request.Host + c.Request.URL.RequestURI()
		c.Redirect(http.StatusMovedPermanently, target)
		c.Abort()
	}
}
