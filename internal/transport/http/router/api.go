package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gp-directory/internal/domain"
	httpez "gp-directory/internal/transport/http/ez"
	"gp-directory/internal/transport/http/handler"
)

type searchQ struct {
	Q string `form:"q"`
}

type listQ struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

type idURI struct {
	ID uint `uri:"id" binding:"required"`
}

type listOut struct {
	Total int64             `json:"total"`
	Items []domain.Practice `json:"items"`
}

// mountAPI 只读 JSON 接口，和公开页面同样的检索语义
func mountAPI(api *gin.RouterGroup, h *handler.Handler) {
	api.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))

	ez := httpez.New(api)
	svc := h.Practices

	// --- GET /api/v1/search?q=  ---
	httpez.RegisterAction[searchQ, []domain.Practice](ez, httpez.Action[searchQ, []domain.Practice]{
		Method: http.MethodGet,
		Path:   "/search",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *searchQ) ([]domain.Practice, error) {
			return svc.SearchPublic(c.Request.Context(), in.Q)
		},
	})

	// --- GET /api/v1/practices  分页列表 ---
	httpez.RegisterAction[listQ, listOut](ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/practices",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			if in.Offset < 0 {
				return listOut{}, httpez.BadRequest("offset must not be negative")
			}
			if in.Limit <= 0 || in.Limit > svc.PublicLimit() {
				in.Limit = svc.PublicLimit()
			}
			total, err := svc.Count(c.Request.Context())
			if err != nil {
				return listOut{}, httpez.Internal("count practices failed", err)
			}
			items, err := svc.List(c.Request.Context(), in.Limit, in.Offset)
			if err != nil {
				return listOut{}, httpez.Internal("list practices failed", err)
			}
			return listOut{Total: total, Items: items}, nil
		},
	})

	// --- GET /api/v1/practices/:id ---
	httpez.RegisterAction[idURI, *domain.Practice](ez, httpez.Action[idURI, *domain.Practice]{
		Method: http.MethodGet,
		Path:   "/practices/:id",
		Binder: httpez.BindURI,
		Handler: func(c *gin.Context, in *idURI) (*domain.Practice, error) {
			p, err := svc.Get(c.Request.Context(), in.ID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, httpez.NotFound("practice not found")
			}
			return p, err
		},
	})
}
