package middleware

import (
	"context"
	"strings"

	"tax-portal/pkg/contextkeys"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/service"
	"tax-portal/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware accepts only tokens signed by its own JWTService and carrying requiredRole.
type AuthMiddleware struct {
	jwtService   service.JWTService
	requiredRole string
	logger       *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, requiredRole string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:   jwtSvc,
		requiredRole: requiredRole,
		logger:       logger,
	}
}

func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Warn("AuthMiddleware: empty Authorization header", zap.String("path", c.Path()))
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: malformed Authorization header")
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: token rejected", zap.String("requiredRole", m.requiredRole), zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		if claims.Role != m.requiredRole {
			m.logger.Warn("AuthMiddleware: role mismatch",
				zap.Uint64("userID", claims.UserID),
				zap.String("role", claims.Role),
				zap.String("requiredRole", m.requiredRole))
			return utils.ErrorResponse(c, apperrors.ErrForbidden, m.logger)
		}

		ctx := context.WithValue(c.Request().Context(), contextkeys.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, contextkeys.RoleKey, claims.Role)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
