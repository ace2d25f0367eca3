package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"localserve/config"
	"localserve/cron"
	"localserve/database"
	bookingRepo "localserve/database/repository/booking"
	catalogRepo "localserve/database/repository/catalog"
	"localserve/handlers"
	"localserve/routes"
	"localserve/services/booking"
	"localserve/services/notification"
	"localserve/services/payment"
	"localserve/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.InitDB(); err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	cache := utils.GetCacheClient()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	utils.StartHealthMonitor(ctx, cache, database.MongoClient, 30*time.Second)

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo(database.Database())
	if err := bookings.EnsureIndexes(ctx); err != nil {
		logger.Warn("main: failed to ensure booking indexes", zap.Error(err))
	}
	directory := catalogRepo.NewMongoServiceDirectory(database.Database())

	// notifications.
	queue := asynq.NewClient(cron.RedisOpt())
	defer queue.Close()

	var notifier notification.StatusNotifier = notification.NoopNotifier{}
	var worker *asynq.Server
	fcm, err := utils.NewFCMClient(ctx)
	switch {
	case err != nil:
		logger.Warn("main: push notifications disabled", zap.Error(err))
	case fcm == nil:
		logger.Info("main: no Firebase credentials configured, push notifications disabled")
	default:
		notifier = notification.NewQueueNotifier(queue, config.AppConfig.PaymentReminderDelay)
		worker, err = cron.StartNotificationWorker(notification.NewPushService(fcm), bookings, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to start notification worker: %v", err)
		}
	}

	bookingService := &booking.DefaultBookingService{
		Repo:      bookings,
		Directory: directory,
		Gateway:   newPaymentGateway(logger),
		Orders:    payment.NewOrderRegistry(cache, config.AppConfig.OrderTTL),
		Notifier:  notifier,
		Currency:  config.AppConfig.PaymentCurrency,
		Logger:    logger,
		LockWait:  2 * time.Second,
	}

	router := gin.New()
	router.Use(gin.Logger())
	routes.RegisterRoutes(router, handlers.NewHandlerBundle(handlers.NewBookingHandler(bookingService)))

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	if err := database.MongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// newPaymentGateway builds the gateway named by PAYMENT_GATEWAY. It returns
// nil, disabling payments, when none is configured.
func newPaymentGateway(logger *zap.Logger) payment.Gateway {
	cfg := config.AppConfig
	switch strings.ToLower(cfg.PaymentGateway) {
	case "razorpay":
		return payment.NewRazorpayGateway(cfg.PaymentAPIURL, cfg.PaymentKeyID, cfg.PaymentKeySecret,
			&http.Client{Timeout: 15 * time.Second})
	case "stripe":
		stripe.Key = cfg.StripeKey
		return payment.NewStripeGateway(cfg.StripeKey, cfg.PaymentKeyID)
	case "":
		logger.Info("main: no payment gateway configured, payments disabled")
		return nil
	default:
		logger.Sugar().Fatalf("main: unknown PAYMENT_GATEWAY %q", cfg.PaymentGateway)
		return nil
	}
}
