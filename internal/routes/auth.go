package routes

import (
	"github.com/labstack/echo/v4"

	"tax-portal/internal/controllers"
)

func runAuthRouter(api *echo.Group, ctrl *controllers.AuthController) {
	auth := api.Group("/auth")
	auth.POST("/login", ctrl.Login)
	auth.POST("/register", ctrl.Register)
	auth.POST("/admin/login", ctrl.AdminLogin)
}
