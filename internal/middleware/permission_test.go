package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRequireSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/anon/:id", RequireSelf("id"), func(c *gin.Context) { c.Status(http.StatusOK) })
	as := func(c *gin.Context) { c.Set(CtxUserIDKey, uint(5)) }
	r.GET("/users/:id", as, RequireSelf("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := map[string]int{
		"/anon/5":   http.StatusUnauthorized,
		"/users/5":  http.StatusOK,
		"/users/6":  http.StatusForbidden,
		"/users/me": http.StatusBadRequest,
	}
	for path, want := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, want, w.Code, path)
	}
}
