package http

import (
	"context"
	"net/http"

	"backtest-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(v1 *echo.Group) {
	jobs := v1.Group("/jobs")
	{
		jobs.POST("/leaderboard/run", h.RunLeaderboardJob)
		jobs.POST("/cleanup/run", h.RunCleanupJob)
	}
}

func (h *HttpAPIHandler) runJob(c echo.Context, name string, run func(ctx context.Context) error) error {
	response := dto.NewBaseResponse(http.StatusOK, name+" completed", nil)
	if err := run(c.Request().Context()); err != nil {
		response.Code = http.StatusInternalServerError
		response.Message = err.Error()
	}
	return c.JSON(response.Code, response)
}

func (h *HttpAPIHandler) RunLeaderboardJob(c echo.Context) error {
	return h.runJob(c, "leaderboard refresh", h.service.SchedulerService.RunLeaderboardJob)
}

func (h *HttpAPIHandler) RunCleanupJob(c echo.Context) error {
	return h.runJob(c, "cleanup", h.service.SchedulerService.RunCleanupJob)
}
