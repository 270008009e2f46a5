package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	resp "gp-directory/internal/transport/http/response"
)

// APIPrefix JSON 接口前缀；其下的错误走统一 Resp 包装
const APIPrefix = "/api/"

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, APIPrefix)
}

// fail 页面请求返回真实状态码 + 纯文本，API 请求按约定返回 200 + Resp
func fail(c *gin.Context, status int, msg string) {
	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(status, msg))
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(status, msg)
	c.Abort()
}
