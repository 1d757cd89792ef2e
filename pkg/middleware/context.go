package middleware

import (
	"context"
	"time"

	"backtest-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WithRequestContext bounds every request by timeout and stores a logger
// tagged with the request id in the request context.
func WithRequestContext(log *logger.Logger, timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			defer cancel()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			reqLog := log.With(
				logger.StringField("request_id", requestID),
				logger.StringField("path", c.Path()),
			)

			c.SetRequest(req.WithContext(logger.NewContext(ctx, reqLog)))
			return next(c)
		}
	}
}
