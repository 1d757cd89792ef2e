package http

import (
	"net/http"
	"strconv"

	"backtest-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSignal(v1 *echo.Group) {
	group := v1.Group("/signals")
	group.POST("/evaluate", h.EvaluateSignal)
	group.PATCH("/:id/status", h.UpdateSignalStatus)
	group.GET("/stats", h.SignalStats)
}

func (h *HttpAPIHandler) EvaluateSignal(c echo.Context) error {
	req := new(dto.EvaluateSignalRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.RiskService.EvaluateCandidate(c.Request().Context(), *req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(resp.Decision.Reason, resp))
}

func (h *HttpAPIHandler) UpdateSignalStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid id"))
	}

	req := new(dto.UpdateSignalStatusRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	if err := h.service.RiskService.UpdateSignalStatus(c.Request().Context(), uint(id), *req); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("signal updated", nil))
}

func (h *HttpAPIHandler) SignalStats(c echo.Context) error {
	resp, err := h.service.RiskService.Stats(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}
