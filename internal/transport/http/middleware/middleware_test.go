package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gp-directory/internal/core/limiter"
	resp "gp-directory/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	t.Run("Generates an id when none is sent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		rid := w.Header().Get(HeaderRequestID)
		assert.Len(t, rid, 36)
		assert.Equal(t, rid, w.Body.String())
	})

	t.Run("Echoes a caller supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	})
}

func TestForceHTTPS(t *testing.T) {
	t.Run("Plain HTTP is redirected permanently", func(t *testing.T) {
		r := gin.New()
		r.Use(ForceHTTPS(true))
		r.GET("/search", okHandler)

		req := httptest.NewRequest(http.MethodGet, "http://gp.example/search?q=M1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "https://gp.example/search?q=M1", w.Header().Get("Location"))
	})

	t.Run("Requests forwarded over HTTPS pass through", func(t *testing.T) {
		r := gin.New()
		r.Use(ForceHTTPS(true))
		r.GET("/", okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Disabled enforcement does nothing", func(t *testing.T) {
		r := gin.New()
		r.Use(ForceHTTPS(false))
		r.GET("/", okHandler)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLoginRateLimit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := limiter.NewWindow(2, time.Minute, func() time.Time { return now })

	r := gin.New()
	r.POST("/admin/login", LoginRateLimit(w, nil), okHandler)
	r.POST("/api/login", LoginRateLimit(w, nil), okHandler)

	post := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, post("/admin/login", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, post("/admin/login", "10.0.0.1").Code)

	t.Run("Attempts over the limit get 429 with Retry-After", func(t *testing.T) {
		rec := post("/admin/login", "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "too many login attempts")
	})

	t.Run("Other addresses are unaffected", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, post("/admin/login", "10.0.0.2").Code)
	})

	t.Run("API paths get the JSON envelope", func(t *testing.T) {
		rec := post("/api/login", "10.0.0.1")
		assert.Equal(t, http.StatusOK, rec.Code)
		var body resp.Resp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, resp.CodeTooManyRequests, body.Code)
	})

	t.Run("A custom renderer replaces the default response", func(t *testing.T) {
		r2 := gin.New()
		r2.POST("/admin/login", LoginRateLimit(w, func(c *gin.Context, retry time.Duration) {
			c.String(http.StatusTooManyRequests, "slow down")
		}), okHandler)
		req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		r2.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "slow down", rec.Body.String())
	})
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(16))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			_ = c.Error(err)
			return
		}
		c.String(http.StatusOK, "ok")
	})

	t.Run("Small bodies are accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Oversized bodies get 413", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 64))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestConcurrencyLimit(t *testing.T) {
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	r.GET("/", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("A cancelled request waiting for a slot gets 503", func(t *testing.T) {
		block := make(chan struct{})
		started := make(chan struct{})
		r2 := gin.New()
		r2.Use(ConcurrencyLimit(1))
		r2.GET("/hold", func(c *gin.Context) {
			close(started)
			<-block
		})
		r2.GET("/", okHandler)

		go r2.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hold", nil))
		<-started

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		r2.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		close(block)
	})
}

func TestMask(t *testing.T) {
	q := url.Values{"q": {"M1"}, "Password": {"hunter2"}, "csrf_token": {"abc"}}
	got := mask(q)
	assert.Equal(t, []string{"M1"}, got["q"])
	assert.Equal(t, []string{"****"}, got["Password"])
	assert.Equal(t, []string{"****"}, got["csrf_token"])
}
