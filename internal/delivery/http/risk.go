package http

import (
	"net/http"

	"backtest-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupRisk(v1 *echo.Group) {
	group := v1.Group("/risk")
	group.POST("/size", h.SizePosition)
	group.POST("/kelly", h.Kelly)
}

func (h *HttpAPIHandler) SizePosition(c echo.Context) error {
	req := new(dto.SizePositionRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.RiskService.SizePosition(c.Request().Context(), *req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}

func (h *HttpAPIHandler) Kelly(c echo.Context) error {
	req := new(dto.KellyRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp := h.service.RiskService.Kelly(c.Request().Context(), *req)
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}
