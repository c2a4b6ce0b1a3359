package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/services"
	"tax-portal/pkg/api"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/utils"
)

type AuthController struct {
	authService services.AuthServiceInterface
	logger      *zap.Logger
}

func NewAuthController(authService services.AuthServiceInterface, logger *zap.Logger) *AuthController {
	return &AuthController{authService: authService, logger: logger}
}

func (ctrl *AuthController) errorResponse(c echo.Context, err error) error {
	return utils.ErrorResponse(c, err, ctrl.logger)
}

func (ctrl *AuthController) Login(c echo.Context) error {
	return ctrl.login(c, constants.RoleUser)
}

func (ctrl *AuthController) AdminLogin(c echo.Context) error {
	return ctrl.login(c, constants.RoleAdmin)
}

func (ctrl *AuthController) login(c echo.Context, role string) error {
	var payload dto.LoginDTO
	if err := c.Bind(&payload); err != nil {
		return ctrl.errorResponse(c, apperrors.NewBadRequestError("invalid login payload"))
	}
	if err := c.Validate(&payload); err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.authService.Login(c.Request().Context(), payload, role)
	if err != nil {
		ctrl.logger.Info("login rejected", zap.String("email", payload.Email), zap.String("role", role), zap.Error(err))
		return ctrl.errorResponse(c, err)
	}
	return api.SuccessOne(c, http.StatusOK, "Logged in", *res)
}

func (ctrl *AuthController) Register(c echo.Context) error {
	var payload dto.RegisterDTO
	if err := c.Bind(&payload); err != nil {
		return ctrl.errorResponse(c, apperrors.NewBadRequestError("invalid registration payload"))
	}
	if err := c.Validate(&payload); err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.authService.Register(c.Request().Context(), payload)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return api.SuccessOne(c, http.StatusCreated, "Registered", *res)
}
