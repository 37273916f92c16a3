package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/events"
	"github.com/sokoline/api/internal/handlers"
	"github.com/sokoline/api/internal/payments"
	"github.com/sokoline/api/internal/platform/auth"
	"github.com/sokoline/api/internal/platform/cache"
	"github.com/sokoline/api/internal/platform/config"
	"github.com/sokoline/api/internal/platform/observability"
	"github.com/sokoline/api/internal/platform/ratelimit"
	"github.com/sokoline/api/internal/repositories/postgres"
	"github.com/sokoline/api/internal/services"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx := observability.WithLogger(context.Background(), logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := postgres.Open(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer closeDB(logger, db)

	migrateCtx, cancelMigrate := context.WithTimeout(ctx, time.Minute)
	defer cancelMigrate()
	if err := postgres.Migrate(migrateCtx, db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, cfg.Kafka.StockTopic)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("kafka close error", zap.Error(err))
			}
		}()
		publisher = kafkaPublisher
	}

	orderRepo := postgres.NewOrderRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	cartRepo := postgres.NewCartRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)
	warehouseRepo := postgres.NewWarehouseRepository(db)
	giftCardRepo := postgres.NewGiftCardRepository(db)
	returnRepo := postgres.NewReturnRepository(db)
	userRepo := postgres.NewUserRepository(db)

	eventLog := observability.EventLogger(logger)
	rates := domain.PricingRates{
		Currency:                   cfg.Pricing.Currency,
		TaxBasisPoints:             cfg.Pricing.TaxBasisPoints,
		ShippingFlatCents:          cfg.Pricing.ShippingFlatCents,
		FreeShippingThresholdCents: cfg.Pricing.FreeShippingThresholdCents,
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: catalogRepo,
		Logger:  eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Carts:   cartRepo,
		Catalog: catalogRepo,
		Logger:  eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:    orderRepo,
		Catalog:   catalogRepo,
		GiftCards: giftCardRepo,
		Users:     userRepo,
		Events:    publisher,
		Rates:     rates,
		Logger:    eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory:  inventoryRepo,
		Warehouses: warehouseRepo,
		Events:     publisher,
		Logger:     eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	giftCardService, err := services.NewGiftCardService(services.GiftCardServiceDeps{
		GiftCards: giftCardRepo,
		Logger:    eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise gift card service", zap.Error(err))
	}

	returnService, err := services.NewReturnService(services.ReturnServiceDeps{
		Returns: returnRepo,
		Orders:  orderRepo,
		Logger:  eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise return service", zap.Error(err))
	}

	loyaltyService, err := services.NewLoyaltyService(services.LoyaltyServiceDeps{Users: userRepo})
	if err != nil {
		logger.Fatal("failed to initialise loyalty service", zap.Error(err))
	}

	providerManager, err := buildProviderManager(cfg.PSP, logger)
	if err != nil {
		logger.Fatal("failed to initialise payment providers", zap.Error(err))
	}

	paymentService, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:    orderRepo,
		Providers: providerManager,
		Events:    publisher,
		Logger:    eventLog,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment service", zap.Error(err))
	}

	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	perf := observability.NewPerfMonitor(0)

	var limiterCounter ratelimit.Counter = ratelimit.NewMemoryCounter()
	if redisClient != nil {
		redisCounter, err := ratelimit.NewRedisCounter(redisClient)
		if err != nil {
			logger.Fatal("failed to initialise rate limit counter", zap.Error(err))
		}
		limiterCounter = redisCounter
	}
	limiter, err := ratelimit.NewLimiter(limiterCounter, ratelimit.Config{
		AnonymousPerMinute:  cfg.RateLimits.DefaultPerMinute,
		IdentifiedPerMinute: cfg.RateLimits.AuthenticatedPerMinute,
	})
	if err != nil {
		logger.Fatal("failed to initialise rate limiter", zap.Error(err))
	}

	var catalogMiddlewares []func(http.Handler) http.Handler
	if redisClient != nil {
		store, err := cache.NewRedisStore(redisClient)
		if err != nil {
			logger.Fatal("failed to initialise response cache", zap.Error(err))
		}
		catalogMiddlewares = append(catalogMiddlewares, cache.NewResponseCache(store, cfg.Redis.CacheTTL).Middleware())
	}

	healthHandlers := handlers.NewHealthHandlers(handlers.WithReadyCheck(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}))

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(perf),
			observability.RecoveryMiddleware(logger),
			// Identity must be resolved before the limiter classifies the
			// caller, or authenticated users fall into the per-IP budget.
			authenticator.OptionalAuth(),
			limiter.Middleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes((handlers.NewCatalogHandlers(catalogService)).Routes),
		handlers.WithCatalogMiddlewares(catalogMiddlewares...),
		handlers.WithCartRoutes((handlers.NewCartHandlers(authenticator, cartService)).Routes),
		handlers.WithOrderRoutes((handlers.NewOrderHandlers(authenticator, orderService)).Routes),
		handlers.WithReturnRoutes((handlers.NewReturnHandlers(authenticator, returnService)).Routes),
		handlers.WithGiftCardRoutes((handlers.NewGiftCardHandlers(giftCardService)).Routes),
		handlers.WithPaymentRoutes((handlers.NewPaymentHandlers(authenticator, paymentService)).Routes),
		handlers.WithMeRoutes((handlers.NewMeHandlers(authenticator, loyaltyService)).Routes),
		handlers.WithAdminRoutes((handlers.NewAdminHandlers(handlers.AdminHandlersDeps{
			Authenticator: authenticator,
			Catalog:       catalogService,
			Inventory:     inventoryService,
			Orders:        orderService,
			Returns:       returnService,
			GiftCards:     giftCardService,
			Perf:          perf,
		})).Routes),
		handlers.WithWebhookRoutes((handlers.NewWebhookHandlers(paymentService, eventLog)).Routes),
		handlers.WithWebhookMiddlewares(auth.NewWebhookVerifier(auth.WebhookVerifierConfig{
			StripeSecret: cfg.PSP.StripeWebhookSecret,
			MpesaSecret:  cfg.PSP.MpesaWebhookSecret,
			PaypalSecret: cfg.PSP.PaypalWebhookSecret,
		}).Middleware()),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("sokoline api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildProviderManager registers only the providers whose credentials are
// configured. Checkout still works with none; orders then wait as pending
// until an operator settles them out of band.
func buildProviderManager(cfg config.PSPConfig, logger *zap.Logger) (*payments.Manager, error) {
	var providers []payments.Provider

	if cfg.MpesaConsumerKey != "" {
		mpesa, err := payments.NewMpesaProvider(payments.MpesaProviderConfig{
			BaseURL:        cfg.MpesaBaseURL,
			ConsumerKey:    cfg.MpesaConsumerKey,
			ConsumerSecret: cfg.MpesaConsumerSecret,
			ShortCode:      cfg.MpesaShortCode,
			Passkey:        cfg.MpesaPasskey,
			CallbackURL:    cfg.MpesaCallbackURL,
			Logger:         observability.EventLogger(logger.Named("mpesa")),
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, mpesa)
	}

	if cfg.StripeAPIKey != "" {
		stripe, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: cfg.StripeAPIKey,
			Logger: observability.EventLogger(logger.Named("stripe")),
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, stripe)
	}

	if cfg.PaypalClientID != "" {
		paypal, err := payments.NewPaypalProvider(payments.PaypalProviderConfig{
			BaseURL:      cfg.PaypalBaseURL,
			ClientID:     cfg.PaypalClientID,
			ClientSecret: cfg.PaypalSecret,
			ReturnURL:    cfg.PaypalReturnURL,
			CancelURL:    cfg.PaypalCancelURL,
			Logger:       observability.EventLogger(logger.Named("paypal")),
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, paypal)
	}

	manager := payments.NewManager(providers...)
	logger.Info("payment providers registered", zap.Strings("providers", manager.Names()))
	return manager, nil
}

func closeDB(logger *zap.Logger, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("db handle error on close", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("db close error", zap.Error(err))
	}
}
