package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"tax-portal/internal/routes"
	"tax-portal/internal/services"
	"tax-portal/pkg/config"
	"tax-portal/pkg/database/postgresql"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/eventbus"
	"tax-portal/pkg/filestorage"
	applogger "tax-portal/pkg/logger"
	"tax-portal/pkg/notify"
	"tax-portal/pkg/telegram"
	"tax-portal/pkg/utils"
	"tax-portal/pkg/validation"
	live "tax-portal/pkg/websocket"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	// 1. config and logger
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. echo with middlewares
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(middleware.BodyLimit("12M"))

	// 3. storage backends
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	if *migrate || cfg.Postgres.AutoMigrate {
		if err := postgresql.Migrate(ctx, dbConn); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		// price cache and login throttle degrade without redis
		logger.Warn("redis unreachable, continuing without cache", zap.String("address", cfg.Redis.Address), zap.Error(err))
	}

	fileStorage, err := filestorage.New(ctx, cfg.Storage.Driver, cfg.Storage.LocalPath, cfg.Storage.GCSBucket)
	if err != nil {
		logger.Fatal("file storage init failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	// 4. notifications
	var notifier services.NotificationServiceInterface
	if notify.Configured(cfg.Notify.SMTP) {
		notifier = services.NewEmailNotificationService(notify.NewSMTPMailer(cfg.Notify.SMTP), cfg.Billing, logger.Named("mail"))
	} else {
		logger.Warn("SMTP not configured, bill emails are only logged")
		notifier = services.NewMockNotificationService(cfg.Billing, logger.Named("mail"))
	}

	var telegramService telegram.ServiceInterface
	if cfg.Notify.Telegram.BotToken != "" {
		telegramService = telegram.NewService(cfg.Notify.Telegram.BotToken)
	}

	bus := eventbus.New(logger.Named("bus"))
	hub := live.NewHub(logger.Named("live"))
	go hub.Run(ctx)

	// 5. routes
	unsubscribe := routes.InitRouter(e, routes.Dependencies{
		DB:          dbConn,
		Redis:       redisClient,
		Bus:         bus,
		FileStorage: fileStorage,
		Notifier:    notifier,
		Telegram:    telegramService,
		Hub:         hub,
		Config:      cfg,
		Loggers: &routes.Loggers{
			Main:    logger,
			Auth:    logger.Named("auth"),
			Request: logger.Named("requests"),
			Pricing: logger.Named("pricing"),
		},
	})

	// 6. serve until signalled
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	// let in-flight bill deliveries finish
	unsubscribe()
	bus.Wait()
	logger.Info("stopped")
}
