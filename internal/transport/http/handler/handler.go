package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gp-directory/internal/domain"
	"gp-directory/internal/service"
	mdw "gp-directory/internal/transport/http/middleware"
)

// Handler 页面处理函数共用的依赖
type Handler struct {
	Practices *service.PracticeService
	Guard     *service.SessionGuard
	Cookie    mdw.SessionCookie
	Log       *zap.Logger
}

func New(practices *service.PracticeService, guard *service.SessionGuard, cookie mdw.SessionCookie, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Practices: practices, Guard: guard, Cookie: cookie, Log: log}
}

const flashCookie = "gp_flash"

// setFlash 一次性提示，下一次渲染页面时取出；Secure 跟随会话 Cookie
func (h *Handler) setFlash(c *gin.Context, msg string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, msg, 60, "/", "", h.Cookie.Secure, true)
}

func (h *Handler) popFlash(c *gin.Context) string {
	msg, err := c.Cookie(flashCookie)
	if err != nil || msg == "" {
		return ""
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", h.Cookie.Secure, true)
	return msg
}

// page 模板公共数据 + 页面数据
func (h *Handler) page(c *gin.Context, title string, data gin.H) gin.H {
	_, admin := c.Get(mdw.KeyAdminID)
	out := gin.H{
		"Title": title,
		"Flash": h.popFlash(c),
		"Admin": admin,
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	h.Log.Error(msg, zap.Error(err), zap.String("rid", c.GetString(mdw.KeyRequestID)))
	_ = c.Error(err)
	c.HTML(http.StatusInternalServerError, "error.tmpl", h.page(c, "Something went wrong", gin.H{
		"Message": "The request could not be completed. Please try again.",
	}))
}

// NotFoundPage NoRoute
func (h *Handler) NotFoundPage(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.tmpl", h.page(c, "Page not found", gin.H{
		"Message": "There is nothing at this address.",
	}))
}

// RateLimited 登录限流命中时渲染
func (h *Handler) RateLimited(c *gin.Context, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds() + 0.999)
	h.Log.Warn("login rate limited",
		zap.Error(domain.ErrRateLimited),
		zap.String("ip", c.ClientIP()),
		zap.Int("retry_after", secs),
	)
	c.HTML(http.StatusTooManyRequests, "ratelimited.tmpl", h.page(c, "Too many attempts", gin.H{
		"RetryAfter": secs,
	}))
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
