package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/service"
	"tax-portal/pkg/utils"
	live "tax-portal/pkg/websocket"
)

// LiveController upgrades a signed-in submitter to a websocket that receives status updates.
// Browsers cannot set headers on the upgrade request, so the token travels in ?token=.
type LiveController struct {
	hub        *live.Hub
	jwtService service.JWTService
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewLiveController(hub *live.Hub, jwtService service.JWTService, allowedOrigins []string, logger *zap.Logger) *LiveController {
	return &LiveController{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (c *LiveController) Serve(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return utils.ErrorResponse(ctx, apperrors.ErrEmptyAuthHeader, c.logger)
	}
	claims, err := c.jwtService.ValidateToken(token)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if claims.Role != constants.RoleUser {
		return utils.ErrorResponse(ctx, apperrors.ErrForbidden, c.logger)
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		c.logger.Warn("live: upgrade failed", zap.Error(err))
		return nil
	}

	client := live.NewClient(c.hub, conn, claims.UserID)
	if !c.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("live: client connected", zap.Uint64("userID", claims.UserID))
	return nil
}
