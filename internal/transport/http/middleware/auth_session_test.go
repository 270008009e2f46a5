package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gp-directory/internal/core/auth"
	"gp-directory/internal/core/session"
	"gp-directory/internal/domain"
	"gp-directory/internal/service"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, u, p string) (uint, error) {
	if u == "admin" && p == "pw" {
		return 1, nil
	}
	return 0, domain.ErrAuthFailed
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestGuard() (*service.SessionGuard, *testClock) {
	clk := &testClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	g := service.NewSessionGuard(stubVerifier{}, session.NewStore(clk.now),
		&auth.JWTer{Secret: []byte("k"), Issuer: "test", Now: clk.now},
		service.GuardOpts{TTL: time.Hour, Now: clk.now})
	return g, clk
}

func protectedEngine(g *service.SessionGuard, sc SessionCookie) *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin", RequireAdmin(g, sc, "/admin/login"), CSRF())
	admin.GET("", func(c *gin.Context) {
		s, ok := CurrentSession(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session")
			return
		}
		c.String(http.StatusOK, "admin %d", s.AdminID)
	})
	admin.POST("/delete/:id", okHandler)
	return r
}

func TestRequireAdmin(t *testing.T) {
	sc := SessionCookie{Name: "gp_session"}
	g, clk := newTestGuard()
	r := protectedEngine(g, sc)

	tok, _, err := g.Authenticate(context.Background(), "", "admin", "pw")
	require.NoError(t, err)

	get := func(cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: sc.Name, Value: cookie})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Anonymous requests are redirected to the login page", func(t *testing.T) {
		w := get("")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"))
	})

	t.Run("Garbage cookies are cleared and redirected", func(t *testing.T) {
		w := get("garbage")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"))
		assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	t.Run("A live session reaches the handler", func(t *testing.T) {
		w := get(tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin 1", w.Body.String())
	})

	t.Run("An expired session is sent to login with a notice flag", func(t *testing.T) {
		clk.t = clk.t.Add(time.Hour)
		w := get(tok)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/login?expired=1", w.Header().Get("Location"))
	})
}

func TestCSRF(t *testing.T) {
	sc := SessionCookie{Name: "gp_session"}
	g, _ := newTestGuard()
	r := protectedEngine(g, sc)

	tok, sess, err := g.Authenticate(context.Background(), "", "admin", "pw")
	require.NoError(t, err)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/delete/1", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: sc.Name, Value: tok})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Posts without the token are forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, post(url.Values{}).Code)
	})

	t.Run("Posts with a wrong token are forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFField: {"nope"}}).Code)
	})

	t.Run("Posts with the session token pass", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, post(url.Values{CSRFField: {sess.CSRFToken}}).Code)
	})
}

func TestSessionCookie(t *testing.T) {
	sc := SessionCookie{Name: "gp_session", Secure: true}
	r := gin.New()
	r.GET("/set", func(c *gin.Context) { sc.Set(c, "tok", true, time.Hour) })
	r.GET("/browser", func(c *gin.Context) { sc.Set(c, "tok", false, time.Hour) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	c := w.Header().Get("Set-Cookie")
	assert.Contains(t, c, "gp_session=tok")
	assert.Contains(t, c, "Max-Age=3600")
	assert.Contains(t, c, "HttpOnly")
	assert.Contains(t, c, "Secure")
	assert.Contains(t, c, "SameSite=Lax")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/browser", nil))
	assert.NotContains(t, w.Header().Get("Set-Cookie"), "Max-Age")
}

func TestLoginCSRF(t *testing.T) {
	sc := SessionCookie{Name: "gp_session", Secure: true}
	r := gin.New()
	r.GET("/admin/login", sc.LoginCSRF(), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyCSRF)) })
	r.POST("/admin/login", sc.LoginCSRF(), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var issued *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == LoginCSRFCookie {
			issued = c
		}
	}
	require.NotNil(t, issued)
	assert.True(t, issued.HttpOnly)
	assert.True(t, issued.Secure)
	assert.Equal(t, issued.Value, w.Body.String(), "the page gets the same token as the cookie")

	t.Run("An existing token is reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
		req.AddCookie(issued)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, issued.Value, w.Body.String())
		assert.Empty(t, w.Header().Get("Set-Cookie"))
	})

	post := func(form url.Values, ck *http.Cookie) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if ck != nil {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("Matching cookie and field pass", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, post(url.Values{CSRFField: {issued.Value}}, issued))
	})

	t.Run("Missing or mismatched tokens are forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFField: {issued.Value}}, nil))
		assert.Equal(t, http.StatusForbidden, post(url.Values{}, issued))
		assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFField: {"forged"}}, issued))
	})
}
