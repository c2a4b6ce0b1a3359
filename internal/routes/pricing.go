package routes

import (
	"github.com/labstack/echo/v4"

	"tax-portal/internal/controllers"
)

func runPricingRouter(api *echo.Group, ctrl *controllers.PricingController, adminAuth echo.MiddlewareFunc) {
	pricing := api.Group("/pricing")

	pricing.GET("", ctrl.List)
	pricing.GET("/:category/:serviceType", ctrl.Quote)
	pricing.GET("/:category/:serviceType/stream", ctrl.Stream)

	pricing.PUT("/:entryId", ctrl.Update, adminAuth)
	pricing.POST("/initialize", ctrl.Initialize, adminAuth)
}
