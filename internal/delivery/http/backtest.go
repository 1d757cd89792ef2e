package http

import (
	"net/http"

	"backtest-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(v1 *echo.Group) {
	group := v1.Group("/backtests")
	group.POST("", h.CreateBacktest)
	group.POST("/run", h.RunBacktest)
	group.POST("/batch", h.RunBacktestBatch)
	group.GET("/:id", h.GetBacktest)
}

func (h *HttpAPIHandler) CreateBacktest(c echo.Context) error {
	req := new(dto.CreateBacktestRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.BacktestService.Enqueue(c.Request().Context(), *req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto.NewBaseResponse(http.StatusAccepted, "backtest queued", resp))
}

func (h *HttpAPIHandler) RunBacktest(c echo.Context) error {
	req := new(dto.RunBacktestRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.BacktestService.RunSync(c.Request().Context(), *req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest completed", resp))
}

func (h *HttpAPIHandler) RunBacktestBatch(c echo.Context) error {
	req := new(dto.RunBatchRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.BacktestService.RunBatch(c.Request().Context(), req.Runs)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtests completed", resp))
}

func (h *HttpAPIHandler) GetBacktest(c echo.Context) error {
	id, ok, err := idParam(c)
	if !ok {
		return err
	}

	resp, err := h.service.BacktestService.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}
