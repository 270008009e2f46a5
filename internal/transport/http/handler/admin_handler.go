package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"gp-directory/internal/domain"
	"gp-directory/internal/feature/practice"
	mdw "gp-directory/internal/transport/http/middleware"
)

const (
	msgInvalidLogin   = "Invalid username or password."
	msgSessionExpired = "Your session has expired. Please log in again."
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *Handler) LoginPage(c *gin.Context) {
	msg := ""
	if c.Query("expired") == "1" {
		msg = msgSessionExpired
	}
	c.HTML(http.StatusOK, "login.tmpl", h.page(c, "Admin login", gin.H{
		"Error":    msg,
		"Username": "",
		"CSRF":     csrfToken(c),
	}))
}

// Login 成功：换发会话并进后台；失败：统一提示，不区分用户名/口令
func (h *Handler) Login(c *gin.Context) {
	var in loginForm
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		// 读不出表单按凭据错误处理
		_ = c.Error(err)
		in = loginForm{}
	}
	username := strings.TrimSpace(in.Username)

	tok, sess, err := h.Guard.Authenticate(c.Request.Context(), h.Cookie.Token(c), username, in.Password)
	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		mdw.LoginAttempts.WithLabelValues("failure").Inc()
		h.Log.Info("admin login failed", zap.String("ip", c.ClientIP()))
		c.HTML(http.StatusOK, "login.tmpl", h.page(c, "Admin login", gin.H{
			"Error":    msgInvalidLogin,
			"Username": username,
			"CSRF":     csrfToken(c),
		}))
		return
	case err != nil:
		h.serverError(c, "admin login failed", err)
		return
	}
	mdw.LoginAttempts.WithLabelValues("success").Inc()
	h.Cookie.Set(c, tok, sess.Persistent, h.Guard.TTL())
	c.Redirect(http.StatusFound, "/admin")
}

func (h *Handler) Logout(c *gin.Context) {
	h.Guard.Logout(h.Cookie.Token(c))
	h.Cookie.Clear(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Dashboard(c *gin.Context) {
	out, err := h.Practices.AdminListing(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.serverError(c, "admin listing failed", err)
		return
	}
	c.HTML(http.StatusOK, "admin.tmpl", h.page(c, "Admin", gin.H{
		"Query": out.Query,
		"Items": out.Items,
		"Total": out.Total,
		"Limit": h.Practices.AdminLimit(),
		"CSRF":  csrfToken(c),
	}))
}

func (h *Handler) AddPage(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "Add", "/admin/add", practice.Form{}, "")
}

func (h *Handler) Add(c *gin.Context) {
	var f practice.Form
	if err := c.ShouldBindWith(&f, binding.Form); err != nil {
		_ = c.Error(err)
		h.renderForm(c, http.StatusBadRequest, "Add", "/admin/add", f, "The form could not be read.")
		return
	}
	p, err := h.Practices.Create(c.Request.Context(), f.Fields())
	if errors.Is(err, domain.ErrValidation) {
		h.renderForm(c, http.StatusBadRequest, "Add", "/admin/add", f, validationMessage(err))
		return
	}
	if err != nil {
		h.serverError(c, "create practice failed", err)
		return
	}
	h.Log.Info("practice added", zap.Uint("id", p.ID), zap.Any("admin_id", c.MustGet(mdw.KeyAdminID)))
	h.setFlash(c, "GP practice added.")
	c.Redirect(http.StatusFound, "/admin")
}

func (h *Handler) EditPage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	p, err := h.Practices.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	if err != nil {
		h.serverError(c, "load practice failed", err)
		return
	}
	h.renderForm(c, http.StatusOK, "Edit", c.Request.URL.Path, practice.FromPractice(p), "")
}

func (h *Handler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	var f practice.Form
	if err := c.ShouldBindWith(&f, binding.Form); err != nil {
		_ = c.Error(err)
		h.renderForm(c, http.StatusBadRequest, "Edit", c.Request.URL.Path, f, "The form could not be read.")
		return
	}
	_, err := h.Practices.Update(c.Request.Context(), id, f.Fields())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.Redirect(http.StatusFound, "/admin")
		return
	case errors.Is(err, domain.ErrValidation):
		h.renderForm(c, http.StatusBadRequest, "Edit", c.Request.URL.Path, f, validationMessage(err))
		return
	case err != nil:
		h.serverError(c, "update practice failed", err)
		return
	}
	h.Log.Info("practice updated", zap.Uint("id", id), zap.Any("admin_id", c.MustGet(mdw.KeyAdminID)))
	h.setFlash(c, "GP practice updated.")
	c.Redirect(http.StatusFound, "/admin")
}

// Delete 物理删除；id 不存在时直接回列表
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	err := h.Practices.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.Redirect(http.StatusFound, "/admin")
		return
	case err != nil:
		h.serverError(c, "delete practice failed", err)
		return
	}
	h.Log.Info("practice removed", zap.Uint("id", id), zap.Any("admin_id", c.MustGet(mdw.KeyAdminID)))
	h.setFlash(c, "GP practice removed.")
	c.Redirect(http.StatusFound, "/admin")
}

func (h *Handler) renderForm(c *gin.Context, status int, action, formAction string, f practice.Form, errMsg string) {
	c.HTML(status, "form.tmpl", h.page(c, action+" practice", gin.H{
		"Action":     action,
		"FormAction": formAction,
		"Form":       f,
		"Error":      errMsg,
		"CSRF":       csrfToken(c),
	}))
}

// csrfToken 后台取会话令牌，登录页取 LoginCSRF 下发的令牌
func csrfToken(c *gin.Context) string {
	if s, ok := mdw.CurrentSession(c); ok {
		return s.CSRFToken
	}
	return c.GetString(mdw.KeyCSRF)
}

func validationMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve.Field == "practice_name" {
		return "Practice name is required."
	}
	return "Please check the form and try again."
}
