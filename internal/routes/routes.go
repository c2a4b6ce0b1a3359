package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tax-portal/internal/controllers"
	"tax-portal/internal/invoice"
	"tax-portal/internal/listeners"
	"tax-portal/internal/repositories"
	"tax-portal/internal/services"
	"tax-portal/pkg/config"
	"tax-portal/pkg/constants"
	"tax-portal/pkg/eventbus"
	"tax-portal/pkg/filestorage"
	"tax-portal/pkg/middleware"
	"tax-portal/pkg/service"
	"tax-portal/pkg/telegram"
	live "tax-portal/pkg/websocket"
)

type Loggers struct {
	Main    *zap.Logger
	Auth    *zap.Logger
	Request *zap.Logger
	Pricing *zap.Logger
}

// Dependencies are the process-wide handles main owns and closes.
type Dependencies struct {
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Bus         *eventbus.Bus
	FileStorage filestorage.FileStorageInterface
	Notifier    services.NotificationServiceInterface
	Telegram    telegram.ServiceInterface
	Hub         *live.Hub
	Config      *config.Config
	Loggers     *Loggers
}

// InitRouter wires repositories, services and listeners, then mounts every route under /api.
// The returned func unsubscribes the listeners.
func InitRouter(e *echo.Echo, deps Dependencies) (shutdown func()) {
	loggers := deps.Loggers
	cfg := deps.Config
	loggers.Main.Info("InitRouter: building routes")

	// --- 1. REPOSITORIES ---
	txManager := repositories.NewTxManager(deps.DB)
	cacheRepo := repositories.NewRedisCacheRepository(deps.Redis)
	userRepo := repositories.NewUserRepository(deps.DB, loggers.Auth)
	requestRepo := repositories.NewServiceRequestRepository(deps.DB, loggers.Request)
	pricingRepo := repositories.NewPricingRepository(deps.DB, loggers.Pricing)

	// --- 2. SERVICES ---
	userJWT := service.NewJWTService(cfg.JWT.UserSecretKey, "tax-portal", cfg.JWT.AccessTokenTTL)
	adminJWT := service.NewJWTService(cfg.JWT.AdminSecretKey, "tax-portal-admin", cfg.JWT.AccessTokenTTL)

	pricingService := services.NewPricingService(pricingRepo, cacheRepo, txManager, deps.Bus, cfg.Redis.PriceCacheTTL, loggers.Pricing)
	requestService := services.NewServiceRequestService(requestRepo, pricingRepo, pricingService, txManager, deps.FileStorage, deps.Bus, loggers.Request)
	authService := services.NewAuthService(userRepo, cacheRepo, userJWT, adminJWT, loggers.Auth)
	generator := invoice.NewGenerator(cfg.Billing)

	// --- 3. LISTENERS ---
	billingListener := listeners.NewBillingListener(generator, deps.Notifier, deps.FileStorage, deps.Telegram, cfg.Notify.Telegram, loggers.Request)
	liveListener := listeners.NewLiveUpdateListener(deps.Hub, cfg.Billing.PaymentGrace, loggers.Request)
	unsubscribeBilling := billingListener.Register(deps.Bus)
	unsubscribeLive := liveListener.Register(deps.Bus)

	// --- 4. CONTROLLERS ---
	ctrls := Controllers{
		Auth:           controllers.NewAuthController(authService, loggers.Auth),
		ServiceRequest: controllers.NewServiceRequestController(requestService, generator, cfg.Billing, loggers.Request),
		Pricing:        controllers.NewPricingController(pricingService, deps.Bus, loggers.Pricing),
		Stats:          controllers.NewStatsController(requestService, loggers.Main),
		Live:           controllers.NewLiveController(deps.Hub, userJWT, cfg.Server.AllowedOrigins, loggers.Main),
	}

	userMW := middleware.NewAuthMiddleware(userJWT, constants.RoleUser, loggers.Auth)
	adminMW := middleware.NewAuthMiddleware(adminJWT, constants.RoleAdmin, loggers.Auth)

	// --- 5. ROUTERS ---
	Mount(e, ctrls, userMW.Auth, adminMW.Auth)

	loggers.Main.Info("InitRouter: routes ready")
	return func() {
		unsubscribeBilling()
		unsubscribeLive()
	}
}

type Controllers struct {
	Auth           *controllers.AuthController
	ServiceRequest *controllers.ServiceRequestController
	Pricing        *controllers.PricingController
	Stats          *controllers.StatsController
	Live           *controllers.LiveController
}

func Mount(e *echo.Echo, ctrls Controllers, userAuth, adminAuth echo.MiddlewareFunc) {
	api := e.Group("/api")

	runAuthRouter(api, ctrls.Auth)
	runServiceRequestRouter(api, ctrls.ServiceRequest, ctrls.Stats, userAuth, adminAuth)
	runPricingRouter(api, ctrls.Pricing, adminAuth)
	if ctrls.Live != nil {
		api.GET("/live", ctrls.Live.Serve)
	}
}
