package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func middlewareRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return router
}

func TestRateLimiterExhaustsBucket(t *testing.T) {
	// 1 rps gives a burst of 2: the third immediate request is refused.
	router := middlewareRouter(NewRateLimiter(1).Middleware())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterPerClient(t *testing.T) {
	router := middlewareRouter(NewRateLimiter(1).Middleware())

	// Drain one client's bucket.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(w, req)
	}

	// A different client still gets through.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	router := middlewareRouter(NewRateLimiter(0).Middleware())

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIPWhitelist(t *testing.T) {
	router := middlewareRouter(IPWhitelist([]string{"10.0.0.1", "192.168.0.0/16"}))

	serve := func(remote string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, serve("192.168.44.7:5000"))
	assert.Equal(t, http.StatusForbidden, serve("172.16.0.9:5000"))
}

func TestIPWhitelistEmptyAllowsAll(t *testing.T) {
	router := middlewareRouter(IPWhitelist(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
