package http

import (
	"net/http"

	"backtest-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupStrategy(v1 *echo.Group) {
	group := v1.Group("/strategies")
	group.POST("", h.CreateStrategy)
	group.POST("/validate", h.ValidateStrategy)
	group.GET("/:id", h.GetStrategy)
}

func (h *HttpAPIHandler) CreateStrategy(c echo.Context) error {
	req := new(dto.CreateStrategyRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.StrategyService.Create(c.Request().Context(), *req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "strategy registered", resp))
}

func (h *HttpAPIHandler) ValidateStrategy(c echo.Context) error {
	req := new(dto.ValidateStrategyRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp := h.service.StrategyService.Validate(c.Request().Context(), *req)
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("strategy validated", resp))
}

func (h *HttpAPIHandler) GetStrategy(c echo.Context) error {
	id, ok, err := idParam(c)
	if !ok {
		return err
	}

	resp, err := h.service.StrategyService.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}
