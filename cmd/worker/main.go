package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"customer-portal/config"
	mqcontracts "customer-portal/contracts/mq"
	"customer-portal/internal/client"
	"customer-portal/internal/mqhandler"
	"customer-portal/internal/repository"
	"customer-portal/internal/service/notify"
	"customer-portal/pkg/circuitbreaker"
	"customer-portal/pkg/db"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/mq"
	"customer-portal/pkg/otel"
	redisclient "customer-portal/pkg/redis"
	"customer-portal/pkg/util"
)

func main() {
	logger := logger.NewLogger("customer-portal-worker")
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Config initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.OTel.ServiceName += "-worker"
	shutdownTracing, err := otel.Init(cfg.OTel, logger)
	if err != nil {
		logger.Fatal("Tracing initialization failed", zap.Error(err))
	}
	defer shutdownTracing()

	logger.Info("Starting worker service...")

	// Init Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, logger)
	retryCounter := util.NewRetryCounter(rdb, cfg.Worker.DedupTTL)

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// DLQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	customerRepo := repository.NewCustomerRepository(dbConn)
	notificationLogRepo := repository.NewNotificationLogRepository(dbConn)

	breaker := circuitbreaker.NewCircuitBreaker("twilio", circuitbreaker.DefaultConfig())
	twilio := client.NewTwilioClient(cfg.Twilio, breaker)
	if !cfg.Twilio.Configured() {
		logger.Warn("Twilio credentials missing, WhatsApp sends will fail")
	}

	dispatcher := notify.NewDispatcher(customerRepo, notificationLogRepo, customerRepo, twilio, notify.Options{
		ChannelPrefix: cfg.Twilio.ChannelPrefix,
		CountryCode:   cfg.Twilio.CountryCode,
		Brand:         cfg.Notification.Brand,
		PortalURL:     cfg.Notification.PortalURL,
		SupportPhone:  cfg.Notification.SupportPhone,
		Location:      cfg.Location(),
	}, logger)

	milestoneHandler := mqhandler.NewMilestoneChangedHandler(
		dispatcher,
		deduper,
		retryCounter,
		publisher,
		cfg.Worker.MaxRetries,
		cfg.Location(),
		logger,
	)

	logger.Info("Initializing milestone consumer", zap.String("queue", cfg.Worker.Queue))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, mqcontracts.RoutingKeyMilestoneStatusChanged, logger)
	if err != nil {
		logger.Fatal("Failed to init milestone consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(milestoneHandler.Handle)

	done := make(chan error, 1)
	go func() {
		done <- consumer.StartConsuming()
	}()

	logger.Info("Worker is ready to process messages")

	select {
	case <-ctx.Done():
		logger.Info("Shutting down worker")
		consumer.Stop()
		<-done
	case err := <-done:
		if err != nil {
			logger.Error("Milestone consumer stopped", zap.Error(err))
		}
	}
}
