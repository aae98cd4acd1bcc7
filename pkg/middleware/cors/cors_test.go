package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(allowed []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(allowed))
	r.GET("/api/v1/chat/history", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api/v1/chat/history", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(method, "/api/v1/chat/history", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowedOriginIsReflectedWithCredentials(t *testing.T) {
	w := serve([]string{"https://app.mindsetu.io/"}, http.MethodGet, "https://APP.mindsetu.io")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://APP.mindsetu.io", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Last-Event-ID")
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestPreflight(t *testing.T) {
	ok := serve([]string{"https://app.mindsetu.io"}, http.MethodOptions, "https://app.mindsetu.io")
	assert.Equal(t, http.StatusNoContent, ok.Code)

	denied := serve([]string{"https://app.mindsetu.io"}, http.MethodOptions, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownOriginGetsNoCORSHeaders(t *testing.T) {
	w := serve([]string{"https://app.mindsetu.io"}, http.MethodGet, "https://evil.example")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestWildcardNeverAllowsCredentials(t *testing.T) {
	w := serve(nil, http.MethodGet, "")

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}
