package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gp-directory/internal/core/session"
	"gp-directory/internal/domain"
	"gp-directory/internal/service"
	"gp-directory/pkg/utils"
)

const (
	KeyAdminID = "adminId"
	KeySession = "session"
	KeyCSRF    = "csrf"

	// CSRFField 表单隐藏字段名
	CSRFField = "csrf_token"

	// LoginCSRFCookie 登录前还没有会话，令牌放在这个 Cookie 里
	LoginCSRFCookie = "gp_login_csrf"
)

// SessionCookie 会话 Cookie 参数；始终 HttpOnly + SameSite=Lax
type SessionCookie struct {
	Name   string
	Secure bool
}

// Set persistent 为 false 时不带 Max-Age，浏览器关闭即失效
func (sc SessionCookie) Set(c *gin.Context, token string, persistent bool, ttl time.Duration) {
	maxAge := 0
	if persistent {
		maxAge = int(ttl.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, token, maxAge, "/", "", sc.Secure, true)
}

func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

func (sc SessionCookie) Token(c *gin.Context) string {
	tok, _ := c.Cookie(sc.Name)
	return tok
}

// RequireAdmin 受保护路由的守卫：无会话/会话过期一律清 Cookie 并跳登录页，后续处理不会执行
func RequireAdmin(g *service.SessionGuard, sc SessionCookie, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := sc.Token(c)
		sess, err := g.Require(tok)
		if err != nil {
			target := loginPath
			if tok != "" {
				sc.Clear(c)
				if errors.Is(err, domain.ErrSessionExpired) {
					target += "?expired=1"
				}
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Set(KeyAdminID, sess.AdminID)
		c.Set(KeySession, sess)
		c.Next()
	}
}

// CurrentSession RequireAdmin 之后可用
func CurrentSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(KeySession)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}

// CSRF 会话内写操作必须带回表单令牌
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		sess, ok := CurrentSession(c)
		got := c.PostForm(CSRFField)
		if !ok || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(sess.CSRFToken)) != 1 {
			fail(c, http.StatusForbidden, "invalid csrf token")
			return
		}
		c.Next()
	}
}

// LoginCSRF 登录表单的双提交校验：GET 下发令牌（Cookie + 表单隐藏字段），
// POST 要求两者一致，否则 403 且不进入认证
func (sc SessionCookie) LoginCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, _ := c.Cookie(LoginCSRFCookie)
		if c.Request.Method != http.MethodPost {
			if tok == "" {
				tok = utils.RandomHex(32)
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(LoginCSRFCookie, tok, 0, "/", "", sc.Secure, true)
			}
			c.Set(KeyCSRF, tok)
			c.Next()
			return
		}
		got := c.PostForm(CSRFField)
		if tok == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(tok)) != 1 {
			fail(c, http.StatusForbidden, "invalid csrf token")
			return
		}
		c.Set(KeyCSRF, tok)
		c.Next()
	}
}
