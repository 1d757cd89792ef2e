package http

import (
	"net/http"

	"backtest-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupLeaderboard(v1 *echo.Group) {
	v1.GET("/leaderboard", h.GetLeaderboard)
}

func (h *HttpAPIHandler) GetLeaderboard(c echo.Context) error {
	req := new(dto.LeaderboardRequest)
	if ok, err := h.bindAndValidate(c, req); !ok {
		return err
	}

	resp, err := h.service.LeaderboardService.Get(c.Request().Context(), *req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", resp))
}
