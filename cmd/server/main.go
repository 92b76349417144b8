package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/api"
	"rentshare-backend-go/internal/clients/classifier"
	"rentshare-backend-go/internal/clients/fxrate"
	"rentshare-backend-go/internal/clients/paypal"
	"rentshare-backend-go/internal/config"
	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/crypto"
	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/firebase"
	"rentshare-backend-go/internal/middleware"
	"rentshare-backend-go/internal/storage"
	"rentshare-backend-go/internal/worker"
	"rentshare-backend-go/pkg/cache"
	"rentshare-backend-go/pkg/mailer"
	"rentshare-backend-go/pkg/messagequeue"
)

const limiterIdle = 10 * time.Minute

func newLogger(ginMode string) (*zap.Logger, error) {
	if strings.EqualFold(ginMode, "release") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.ObjectStore, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}, logger), nil
	}
	gcs, err := storage.NewGCSStore(ctx, db.GetFirebaseApp(), cfg.FirebaseStorageBucket, logger)
	if err != nil {
		return nil, err
	}
	return gcs, nil
}

func main() {
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	zapLogger, err := newLogger(appConfig.GinMode)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// rootCtx lives until shutdown; background jobs and token refreshes hang off it.
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	initCtx, cancelInit := context.WithTimeout(rootCtx, 20*time.Second)
	defer cancelInit()
	if err := db.InitFirebase(initCtx, appConfig); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	firestoreClient := db.GetFirestoreClient()
	defer firestoreClient.Close()

	redisCache, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
		Address:  appConfig.RedisAddr,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	objects, err := newObjectStore(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize object storage", zap.String("backend", appConfig.StorageBackend), zap.Error(err))
	}

	mail, err := mailer.New(initCtx, mailer.Options{
		Backend: appConfig.MailBackend,
		SMTP: mailer.SMTPConfig{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			Username: appConfig.SMTPUser,
			Password: appConfig.SMTPPass,
			From:     appConfig.MailFrom,
		},
		SESRegion: appConfig.SESRegion,
	})
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize mailer", zap.String("backend", appConfig.MailBackend), zap.Error(err))
	}

	sealer, err := crypto.NewSealerFromBase64(appConfig.EncryptionKey)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Invalid ENCRYPTION_KEY", zap.Error(err))
	}

	identity := firebase.NewIdentity(db.GetFirebaseAuthClient())
	var pusher core.Pusher
	if appConfig.PushEnabled {
		pusher = firebase.NewPusher(db.GetMessagingClient())
	}

	var events core.EventPublisher
	if appConfig.AMQPURL != "" {
		publisher, err := messagequeue.NewRabbitMQPublisher(messagequeue.NewRabbitMQPublisherConfig{
			URL:      appConfig.AMQPURL,
			Exchange: appConfig.AMQPExchange,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
		events = publisher
	}

	gateway := paypal.NewClient(rootCtx, paypal.Config{
		ClientID:     appConfig.PaypalClientID,
		ClientSecret: appConfig.PaypalClientSecret,
		BaseURL:      appConfig.PaypalBaseURL,
	}, zapLogger)
	rates := fxrate.NewProvider(fxrate.Config{
		APIURL:   appConfig.FxAPIURL,
		From:     appConfig.DisplayCurrency,
		To:       appConfig.SettlementCurrency,
		Fallback: appConfig.FxFallbackRate,
		TTL:      appConfig.FxRefreshInterval,
	}, redisCache, zapLogger)
	imageClassifier := classifier.NewClient(appConfig.ClassifierURL, 30*time.Second, zapLogger)

	// Repositories
	store := db.NewFirestoreStore(firestoreClient)
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	planRepo := db.NewFirestorePlanRepository(firestoreClient)
	itemRepo := db.NewFirestoreItemRepository(firestoreClient)
	reqRepo := db.NewFirestoreRentRequestRepository(firestoreClient)
	chatRepo := db.NewFirestoreChatRepository(firestoreClient)
	sessionRepo := db.NewFirestoreSessionRepository(firestoreClient)
	paymentRepo := db.NewFirestorePaymentRepository(firestoreClient)
	notifRepo := db.NewFirestoreNotificationRepository(firestoreClient)
	outboxRepo := db.NewFirestoreOutboxRepository(firestoreClient)

	// Services
	notifications := core.NewNotificationService(outboxRepo, notifRepo, userRepo, pusher, events, appConfig.OutboxMaxAttempts, zapLogger)
	services := api.Services{
		Accounts: core.NewAccountService(identity, userRepo, mail, cache.NewCooldown(redisCache), notifications, appConfig.EmailCooldown, zapLogger),
		Users:    core.NewUserService(userRepo, notifRepo, identity, objects, sealer, zapLogger),
		Quota:    core.NewQuotaService(store, planRepo, zapLogger),
		Sessions: core.NewSessionService(store, sessionRepo, appConfig.SessionSettleDelay, zapLogger),
		Listings: core.NewListingService(store, itemRepo, objects, imageClassifier, notifications, zapLogger),
		Rentals:  core.NewRentalService(store, reqRepo, notifications, zapLogger),
		Chats:    core.NewChatService(store, chatRepo, reqRepo, objects, zapLogger),
		Payments: core.NewPaymentService(store, planRepo, paymentRepo, gateway, rates, cache.NewPendingOrderStore(redisCache), notifications, core.PaymentSettings{
			ReturnURL:          appConfig.PaymentReturnURL,
			DisplayCurrency:    appConfig.DisplayCurrency,
			SettlementCurrency: appConfig.SettlementCurrency,
			PendingOrderTTL:    appConfig.PendingOrderTTL,
		}, zapLogger),
	}
	zapLogger.Info("Core services initialized successfully.")

	// HTTP
	if strings.EqualFold(appConfig.GinMode, "release") {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if err := api.RegisterValidators(); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to register validators", zap.Error(err))
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))

	limiter := middleware.NewLimiterStore(appConfig.RateLimitPerMinute)
	api.SetupRoutes(router, zapLogger, identity, limiter, services)

	// Background jobs
	runner := worker.NewRunner(zapLogger)
	runner.Start(rootCtx, worker.Job{
		Name:     "outbox-dispatch",
		Interval: appConfig.OutboxPollInterval,
		Fn: func(ctx context.Context) error {
			n, err := notifications.DispatchPending(ctx)
			if n > 0 {
				zapLogger.Debug("Outbox entries delivered", zap.Int("count", n))
			}
			return err
		},
	})
	runner.Start(rootCtx, worker.Job{
		Name:       "fx-refresh",
		Interval:   appConfig.FxRefreshInterval,
		RunAtStart: true,
		Fn:         rates.Refresh,
	})
	runner.Start(rootCtx, worker.Job{
		Name:     "ratelimit-cleanup",
		Interval: limiterIdle,
		Fn:       limiter.CleanupJob(limiterIdle, zapLogger),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server...", zap.String("address", httpServer.Addr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	runner.Wait()

	zapLogger.Info("Server exiting gracefully.")
}
