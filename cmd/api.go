package cmd

import (
	"context"
	"fmt"
	"time"

	"backtest-engine/internal/delivery/http"
	"backtest-engine/pkg/middleware"

	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

type HTTPServer struct {
	ctx     context.Context
	appDep  *AppDependency
	handler *http.HttpAPIHandler
}

func NewHTTPServer(ctx context.Context, appDep *AppDependency, handler *http.HttpAPIHandler) *HTTPServer {
	return &HTTPServer{
		ctx:     ctx,
		appDep:  appDep,
		handler: handler,
	}
}

func (s *HTTPServer) Start() error {
	s.appDep.log.Info("Starting HTTP server", zap.Int("port", s.appDep.cfg.API.Port))
	address := fmt.Sprintf(":%d", s.appDep.cfg.API.Port)

	s.SetupMiddlewares()
	s.SetupRoutes()

	return s.appDep.echo.Start(address)
}

func (s *HTTPServer) Stop() error {
	s.appDep.log.Info("Shutting down HTTP server")

	// s.ctx is already cancelled at this point
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopDone := make(chan error, 1)
	go func() {
		err := s.appDep.echo.Shutdown(ctx)
		if err != nil {
			s.appDep.log.Error("Error When Stop HTTP server", zap.Error(err))
		}
		stopDone <- nil
	}()

	select {
	case <-stopDone:
		s.appDep.log.Info("HTTP server stopped successfully")
	case <-ctx.Done():
		s.appDep.log.Warn("Timeout while stopping HTTP server, forcing shutdown")
	}
	return nil
}

func (s *HTTPServer) SetupMiddlewares() {
	e := s.appDep.echo
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.WithRequestContext(s.appDep.log, requestTimeout))
	e.Use(middleware.NewRateLimiterMiddleware(s.appDep.cfg.API.MaxRequestPerSec, s.appDep.cfg.API.MaxRequestBurst))
}

func (s *HTTPServer) SetupRoutes() {
	s.handler.SetupRoutes()
}
