package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"customer-portal/config"
	"customer-portal/internal/client"
	"customer-portal/internal/handler"
	"customer-portal/internal/httpserver"
	"customer-portal/internal/repository"
	"customer-portal/internal/scheduler"
	"customer-portal/internal/service/auth"
	"customer-portal/internal/service/notify"
	"customer-portal/internal/service/portal"
	"customer-portal/internal/service/review"
	"customer-portal/pkg/circuitbreaker"
	"customer-portal/pkg/db"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/mq"
	"customer-portal/pkg/otel"
	"customer-portal/pkg/outbox"
	redisclient "customer-portal/pkg/redis"
	"customer-portal/pkg/util"
)

func main() {
	logger := logger.NewLogger("customer-portal")
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Config initialization failed", zap.Error(err))
	}
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(cfg.OTel, logger)
	if err != nil {
		logger.Fatal("Tracing initialization failed", zap.Error(err))
	}
	defer shutdownTracing()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Redis (reminder claims shared by all replicas)
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// Init MQ Publisher (outbox)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Init Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	customerRepo := repository.NewCustomerRepository(dbConn)
	notificationLogRepo := repository.NewNotificationLogRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	portalRepo := repository.NewPortalRepository(dbConn)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, outboxRepo)

	// Init provider clients
	twilio := client.NewTwilioClient(cfg.Twilio, newBreaker("twilio", logger))
	trustpilot := client.NewTrustpilotClient(cfg.Trustpilot, newBreaker("trustpilot", logger))
	supabase := client.NewSupabaseClient(cfg.Supabase, newBreaker("supabase", logger))
	if !cfg.Twilio.Configured() {
		logger.Warn("Twilio credentials missing, WhatsApp sends will fail")
	}
	if !trustpilot.Configured() {
		logger.Warn("Trustpilot credentials missing, serving demo reviews")
	}

	// Init Services
	dispatcher := notify.NewDispatcher(customerRepo, notificationLogRepo, customerRepo, twilio, notify.Options{
		ChannelPrefix: cfg.Twilio.ChannelPrefix,
		CountryCode:   cfg.Twilio.CountryCode,
		Brand:         cfg.Notification.Brand,
		PortalURL:     cfg.Notification.PortalURL,
		SupportPhone:  cfg.Notification.SupportPhone,
		Location:      loc,
	}, logger).WithReminderGuard(util.NewDeduper(rdb, cfg.Notification.ReminderDedupTTL, logger))
	reviewCache := review.NewCache(reviewRepo, trustpilot, cfg.Review.FreshnessWindow, logger)
	portalService := portal.NewService(portalRepo, supabase, cfg.Supabase.DocumentBucket, cfg.Supabase.SignedURLTTL, logger)
	authService := auth.NewService(supabase, customerRepo, auth.NewTokenVerifier(cfg.Supabase.JWTSecret), cfg.Session.SiteURL, logger)
	replayService := outbox.NewReplayService(outboxRepo, publisher, logger)

	// Init Handlers
	cookies := handler.CookieSettings{
		Name:          cfg.Session.CookieName,
		RefreshName:   cfg.Session.RefreshCookieName,
		RefreshMaxAge: int(cfg.Session.RefreshTTL.Seconds()),
		Secure:        cfg.Session.SecureCookie,
	}
	handlers := httpserver.Handlers{
		Auth:         handler.NewAuthHandler(authService, cookies, logger),
		Portal:       handler.NewPortalHandler(portalService, logger),
		Review:       handler.NewReviewHandler(reviewCache, reviewRepo, logger),
		Notification: handler.NewNotificationHandler(dispatcher, logger),
		Admin:        handler.NewAdminHandler(replayService, milestoneRepo, notificationLogRepo, logger),
	}

	// Init Outbox Dispatcher
	outboxDispatcher := outbox.NewDispatcher(outboxRepo, publisher, logger).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go outboxDispatcher.Start(ctx)

	// Daily appointment reminders
	if cfg.Notification.ReminderCronEnabled() {
		reminders, err := scheduler.StartReminderCron(cfg.Notification.ReminderCron, loc, dispatcher, logger)
		if err != nil {
			logger.Fatal("Failed to schedule reminders", zap.Error(err))
		}
		defer reminders.Stop()
	} else {
		logger.Info("Reminder cron disabled, waiting for external trigger")
	}

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(handlers, authService, dbConn, publisher, httpserver.Options{
		Cookies:        cookies,
		InternalSecret: cfg.Notification.InternalSecret,
		CronSecret:     cfg.Notification.CronSecret,
	}, logger)
	srv := router.Server(listenAddr(cfg.Server.Port))

	go func() {
		logger.Info("Starting customer portal", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

func newBreaker(name string, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	cb := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.DefaultConfig())
	cb.OnStateChange(func(name string, from, to circuitbreaker.State) {
		logger.Warn("Circuit breaker state changed",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return cb
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
