package http

import (
	"errors"
	"net/http"

	"backtest-engine/internal/dto"
	"backtest-engine/internal/engine"
	"backtest-engine/internal/repository"
	"backtest-engine/internal/service"
	"backtest-engine/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
}

func NewHttpAPIHandler(echo *echo.Echo, validator *goValidator.Validate, service *service.Service, log *logger.Logger) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	v1 := base.Group("/v1")
	h.SetupStrategy(v1)
	h.SetupBacktest(v1)
	h.SetupLeaderboard(v1)
	h.SetupSignal(v1)
	h.SetupRisk(v1)
	h.SetupJobs(v1)
}

// bindAndValidate decodes the request into req and runs struct validation.
// On failure the 400 response has already been written and ok is false.
func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	return true, nil
}

func (h *HttpAPIHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
	case errors.Is(err, repository.ErrStatusConflict):
		return c.JSON(http.StatusConflict, dto.NewConflictResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidStrategy),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, engine.ErrUnsupportedStrategyKind),
		errors.Is(err, engine.ErrInvalidPriceSeries),
		errors.Is(err, engine.ErrInvalidParameters):
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	default:
		h.log.FromContext(c.Request().Context()).ErrorContext(c.Request().Context(), "Request failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("internal error"))
	}
}

// idParam parses the :id path parameter. On failure the 400 response has
// already been written and ok is false.
func idParam(c echo.Context) (id uuid.UUID, ok bool, err error) {
	id, parseErr := uuid.Parse(c.Param("id"))
	if parseErr != nil {
		return uuid.Nil, false, c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid id"))
	}
	return id, true, nil
}
