package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gp-directory/internal/domain"
)

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", h.page(c, "", nil))
}

// Search 空检索词回首页，而不是返回空结果页
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	results, err := h.Practices.SearchPublic(c.Request.Context(), q)
	if err != nil {
		h.serverError(c, "public search failed", err)
		return
	}
	c.HTML(http.StatusOK, "results.tmpl", h.page(c, "Search", gin.H{
		"Query":   q,
		"Results": results,
		"Limit":   h.Practices.PublicLimit(),
	}))
}

// Detail 不存在的 id 回首页
func (h *Handler) Detail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	p, err := h.Practices.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		h.serverError(c, "load practice failed", err)
		return
	}
	c.HTML(http.StatusOK, "detail.tmpl", h.page(c, p.PracticeName, gin.H{"Practice": p}))
}
