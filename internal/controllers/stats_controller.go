package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tax-portal/internal/services"
	"tax-portal/pkg/api"
	"tax-portal/pkg/utils"
)

type StatsController struct {
	service services.ServiceRequestServiceInterface
	logger  *zap.Logger
}

func NewStatsController(service services.ServiceRequestServiceInterface, logger *zap.Logger) *StatsController {
	return &StatsController{service: service, logger: logger}
}

func (c *StatsController) Get(ctx echo.Context) error {
	stats, err := c.service.Stats(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Stats fetched", *stats)
}
