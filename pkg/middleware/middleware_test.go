package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backtest-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(NewRateLimiterMiddleware(1, 2))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestWithRequestContext(t *testing.T) {
	e := echo.New()
	e.Use(WithRequestContext(logger.NewNop(), time.Second))

	var hasDeadline bool
	e.GET("/", func(c echo.Context) error {
		_, hasDeadline = c.Request().Context().Deadline()
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hasDeadline)
}
