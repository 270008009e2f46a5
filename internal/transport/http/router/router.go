package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gp-directory/internal/core/limiter"
	"gp-directory/internal/core/server"
	"gp-directory/internal/transport/http/handler"
	mdw "gp-directory/internal/transport/http/middleware"
	"gp-directory/internal/transport/http/view"
)

const loginPath = "/admin/login"

type Deps struct {
	Log          *zap.Logger
	Handler      *handler.Handler
	LoginLimiter *limiter.Window
	ForceHTTPS   bool

	// TrustedProxies 反向代理地址/网段；为空时限流按连接对端地址计
	TrustedProxies []string
}

// NewEngine 公开页 + 管理后台 + /api/v1 只读接口
func NewEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, d.TrustedProxies...)
	r.SetHTMLTemplate(view.MustLoad())

	r.Use(
		mdw.ForceHTTPS(d.ForceHTTPS),
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := d.Handler

	// 公开页面
	r.GET("/", h.Index)
	r.GET("/search", h.Search)
	r.GET("/item/:id", h.Detail)

	// 登录（按来源地址限流，先计数再校验 CSRF）
	loginCSRF := h.Cookie.LoginCSRF()
	r.GET(loginPath, loginCSRF, h.LoginPage)
	r.POST(loginPath, mdw.LoginRateLimit(d.LoginLimiter, h.RateLimited), loginCSRF, h.Login)
	r.GET("/admin/logout", h.Logout)

	// 后台（会话 + CSRF）
	admin := r.Group("/admin", mdw.RequireAdmin(h.Guard, h.Cookie, loginPath), mdw.CSRF())
	{
		admin.GET("", h.Dashboard)
		admin.GET("/add", h.AddPage)
		admin.POST("/add", h.Add)
		admin.GET("/edit/:id", h.EditPage)
		admin.POST("/edit/:id", h.Edit)
		admin.POST("/delete/:id", h.Delete)
	}

	mountAPI(r.Group("/api/v1"), h)

	r.NoRoute(h.NotFoundPage)
	return r
}
