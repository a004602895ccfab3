package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/config"
	"github.com/iliyamo/competition-livestream/internal/database"
	"github.com/iliyamo/competition-livestream/internal/handler"
	"github.com/iliyamo/competition-livestream/internal/middleware"
	"github.com/iliyamo/competition-livestream/internal/notification"
	"github.com/iliyamo/competition-livestream/internal/queue"
	"github.com/iliyamo/competition-livestream/internal/realtime"
	"github.com/iliyamo/competition-livestream/internal/repository"
	"github.com/iliyamo/competition-livestream/internal/router"
	"github.com/iliyamo/competition-livestream/internal/scheduler"
	queuepublisher "github.com/iliyamo/competition-livestream/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	}

	passages := repository.NewPassageRepo(db)
	streams := repository.NewStreamRepo(db)
	groups := repository.NewGroupRepo(db)
	apparatus := repository.NewApparatusRepo(db)
	subs := repository.NewSubscriptionRepo(db)

	hub := realtime.NewHub(logger.Named("hub"))
	engine := scheduler.NewEngine(passages, streams, hub, logger.Named("engine"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Delivery channels. Either can be absent; the dispatcher drops
	// what it cannot route.
	var web, fcm notification.ChannelSender
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		web = notification.NewWebPushSender(cfg.VAPIDSubject, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	} else {
		logger.Warn("web push disabled, VAPID keys not configured")
	}
	if cfg.FCMCredentialsFile != "" {
		sender, err := notification.NewFCMSender(ctx, cfg.FCMCredentialsFile)
		if err != nil {
			logger.Warn("fcm disabled", zap.Error(err))
		} else {
			fcm = sender
		}
	}
	dispatcher := notification.NewDispatcher(web, fcm, subs, logger.Named("dispatch"))

	// With a broker the scheduler publishes durable jobs and the
	// consumer resolves and delivers. Without one delivery is
	// in-process on the tick goroutine.
	var notifier scheduler.Notifier
	if cfg.RabbitURL != "" {
		notifier = queuepublisher.QueueNotifier{URL: cfg.RabbitURL, Log: logger.Named("publish")}
		go queue.StartDispatchConsumer(ctx, cfg.RabbitURL, subs, dispatcher, logger.Named("consume"))
	} else {
		notifier = notification.ReminderNotifier{Dispatcher: dispatcher}
	}

	reminder := scheduler.NewReminder(passages, subs, notifier, scheduler.DefaultThresholds(), logger.Named("reminder"))
	clock := scheduler.NewClock(engine, passages, hub, reminder, cfg.SchedulerInterval, logger.Named("clock"))
	go clock.Run(ctx)

	dashboard := scheduler.NewDashboard(hub, passages, hub, 10*time.Second, logger.Named("dashboard"))
	go dashboard.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheCfg := config.LoadCacheConfig()
	cached := middleware.NewRedisCache(cacheCfg, rdb)
	weatherCfg := cacheCfg
	weatherCfg.TTL = 15 * time.Minute
	weatherCached := middleware.NewRedisCache(weatherCfg, rdb)

	handlers := router.Handlers{
		Auth:   &handler.AuthHandler{Cfg: cfg},
		Public: &handler.PublicHandler{Passages: passages, Streams: streams},
		Notifications: &handler.NotificationHandler{
			Subs:           subs,
			VAPIDPublicKey: cfg.VAPIDPublicKey,
			Log:            logger.Named("notifications"),
		},
		Weather: handler.NewWeatherHandler(cfg.WeatherLatitude, cfg.WeatherLongitude, logger.Named("weather")),
		Socket:  &handler.SocketHandler{Hub: hub, Log: logger.Named("ws")},
		AdminStatus: &handler.AdminStatusHandler{
			Engine: engine,
			Log:    logger.Named("admin"),
		},
		AdminScore: &handler.AdminScoreHandler{
			Passages: passages,
			Bus:      hub,
			Log:      logger.Named("admin"),
		},
		AdminStream: &handler.AdminStreamHandler{
			Streams:  streams,
			Passages: passages,
			Bus:      hub,
			Log:      logger.Named("admin"),
		},
		AdminSeed: &handler.AdminSeedHandler{
			Groups:    groups,
			Apparatus: apparatus,
			Passages:  passages,
			Streams:   streams,
			Bus:       hub,
			Log:       logger.Named("admin"),
		},
		AdminExport: &handler.AdminExportHandler{
			Passages: passages,
			Log:      logger.Named("admin"),
		},
		AdminStats: &handler.AdminStatsHandler{Dashboard: dashboard},
	}

	router.RegisterRoutes(e, handlers)
	router.RegisterPublic(e, handlers, cached, weatherCached)
	router.RegisterAdmin(e, handlers, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
