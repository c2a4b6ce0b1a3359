package routes

import (
	"github.com/labstack/echo/v4"

	"tax-portal/internal/controllers"
)

func runServiceRequestRouter(api *echo.Group, ctrl *controllers.ServiceRequestController, stats *controllers.StatsController, userAuth, adminAuth echo.MiddlewareFunc) {
	requests := api.Group("/requests")

	// submitter
	requests.POST("/:category", ctrl.Submit, userAuth)
	requests.GET("/mine", ctrl.ListMine, userAuth)
	requests.GET("/mine/:category/:id/bill.pdf", ctrl.MyBillPDF, userAuth)

	// back office
	requests.GET("/:category", ctrl.List, adminAuth)
	requests.GET("/:category/export.xlsx", ctrl.Export, adminAuth)
	requests.GET("/:category/:id", ctrl.Find, adminAuth)
	requests.PUT("/:category/:id/status", ctrl.UpdateStatus, adminAuth)
	requests.DELETE("/:category/:id", ctrl.Delete, adminAuth)
	requests.GET("/:category/:id/bill.pdf", ctrl.BillPDF, adminAuth)

	api.GET("/stats", stats.Get, adminAuth)
}
