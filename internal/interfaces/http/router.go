package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	notificationUsecases "lumina/internal/application/notification/usecases"
	"lumina/internal/application/subscription/usecases"
	"lumina/internal/domain/notification"
	"lumina/internal/infrastructure/analytics"
	"lumina/internal/infrastructure/appstore"
	"lumina/internal/infrastructure/auth"
	"lumina/internal/infrastructure/cache"
	"lumina/internal/infrastructure/config"
	"lumina/internal/infrastructure/email"
	"lumina/internal/infrastructure/llm"
	"lumina/internal/infrastructure/ratelimit"
	"lumina/internal/infrastructure/repository"
	"lumina/internal/infrastructure/scheduler"
	"lumina/internal/infrastructure/stripegw"
	"lumina/internal/interfaces/http/handlers"
	"lumina/internal/interfaces/http/middleware"
	"lumina/internal/shared/constants"
	"lumina/internal/shared/logger"
)

// Router wires the full dependency graph and exposes the HTTP surface plus
// the background schedulers that share it.
type Router struct {
	engine              *gin.Engine
	subscriptionHandler *handlers.SubscriptionHandler
	webhookHandler      *handlers.WebhookHandler
	authMiddleware      *middleware.AuthMiddleware
	rateLimiter         *middleware.RateLimitMiddleware
	maintenanceSched    *scheduler.SubscriptionScheduler
	digestSched         *scheduler.DigestScheduler
	logger              logger.Interface
}

// NewRouter builds every repository, adapter, use case, handler and scheduler
// from configuration and live connections.
func NewRouter(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Router, error) {
	if cfg.Server.Mode == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	subscriptionRepo := repository.NewSubscriptionRepository(db, log)
	mappingRepo := repository.NewTransactionMappingRepository(db, log)
	webhookEventRepo := repository.NewWebhookEventRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)
	notificationLogRepo := repository.NewNotificationLogRepository(db, log)

	payloadVerifier, err := appstore.NewPayloadVerifier(cfg.AppStore.RootCertificates)
	if err != nil {
		return nil, fmt.Errorf("failed to build app store payload verifier: %w", err)
	}
	appStoreClient := appstore.NewClient(&cfg.AppStore, payloadVerifier, log)
	appStoreAdapter := appstore.NewAdapter(appStoreClient, payloadVerifier, log)

	stripeGateway := stripegw.NewGateway(&cfg.Stripe, log)
	stripeDecoder := stripegw.NewWebhookDecoder(&cfg.Stripe, log)

	entitlementCache := cache.NewEntitlementCache(redisClient)
	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	emailService := email.NewSMTPEmailServiceFromConfig(&cfg.Email)
	contentGenerator := llm.NewOpenAIClient(&cfg.LLM, log)
	tracker := analytics.NewAmplitudeTracker(&cfg.Analytics, log)

	migrateUC := usecases.NewMigrateProviderUseCase(stripeGateway, log)
	verifyUC := usecases.NewVerifyPurchaseUseCase(
		appStoreAdapter, stripeGateway, subscriptionRepo, mappingRepo, migrateUC, entitlementCache, log,
	)
	getUC := usecases.NewGetSubscriptionUseCase(subscriptionRepo, entitlementCache, log)
	cancelUC := usecases.NewCancelSubscriptionUseCase(stripeGateway, subscriptionRepo, entitlementCache, log)
	expireUC := usecases.NewExpireSubscriptionsUseCase(subscriptionRepo, entitlementCache, log)
	lookup := usecases.NewUserLookup(subscriptionRepo, mappingRepo, log)
	eventRouterUC := usecases.NewEventRouterUseCase(
		appStoreAdapter, stripeDecoder, stripeGateway,
		subscriptionRepo, mappingRepo, webhookEventRepo,
		lookup, entitlementCache, log,
	)

	windows := notification.Windows{
		NewUserDays:       cfg.Notification.NewUserWindowDays,
		InactiveAfterDays: cfg.Notification.InactiveAfterDays,
	}
	digestUC := notificationUsecases.NewSendDigestUseCase(
		userRepo, notificationLogRepo, contentGenerator, emailService, tracker, windows, log,
	)
	reminderUC := notificationUsecases.NewSendExpiryReminderUseCase(
		subscriptionRepo, userRepo, notificationLogRepo, emailService, tracker,
		cfg.Notification.ExpiryReminderDays, log,
	)
	noticeUC := notificationUsecases.NewSendPurchaseNoticesUseCase(
		userRepo, notificationLogRepo, emailService, tracker, log,
	)

	subscriptionHandler := handlers.NewSubscriptionHandler(verifyUC, getUC, cancelUC, noticeUC, log)
	webhookHandler := handlers.NewWebhookHandler(eventRouterUC, log)

	authMiddleware := middleware.NewAuthMiddleware(jwtService, log)
	rateLimiter := middleware.NewRateLimitMiddleware(
		ratelimit.NewRedisRateLimiter(redisClient),
		ratelimit.RateLimitConfig{RequestsPerMinute: 60, RequestsPerHour: 1000},
		log,
	)

	return &Router{
		engine:              engine,
		subscriptionHandler: subscriptionHandler,
		webhookHandler:      webhookHandler,
		authMiddleware:      authMiddleware,
		rateLimiter:         rateLimiter,
		maintenanceSched:    scheduler.NewSubscriptionScheduler(expireUC, reminderUC, log),
		digestSched:         scheduler.NewDigestScheduler(digestUC, cfg.Notification.DigestIntervalHours, log),
		logger:              log,
	}, nil
}

// SetupRoutes configures all HTTP routes.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))

	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")

	sub := v1.Group("/subscription")
	sub.Use(r.authMiddleware.RequireAuth(), r.rateLimiter.Limit())
	{
		sub.POST("/verify", r.subscriptionHandler.VerifyPurchase)
		sub.GET("", r.subscriptionHandler.GetSubscription)
		sub.GET("/access", r.subscriptionHandler.GetAccess)
		sub.POST("/cancel", r.subscriptionHandler.CancelSubscription)
	}

	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/appstore", r.webhookHandler.HandleAppStoreNotification)
		webhooks.POST("/stripe", r.webhookHandler.HandleStripeEvent)
	}
}

// StartSchedulers starts the background maintenance and digest loops.
func (r *Router) StartSchedulers(ctx context.Context) {
	r.maintenanceSched.Start(ctx)
	r.digestSched.Start(ctx)
}

// StopSchedulers stops the background loops and waits for in-flight runs.
func (r *Router) StopSchedulers() {
	r.maintenanceSched.Stop()
	r.digestSched.Stop()
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
