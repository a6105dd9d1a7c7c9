package main

import (
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"schoolpay/internal/config"
	"schoolpay/internal/database"
	"schoolpay/internal/gateway"
	"schoolpay/internal/middleware"
	"schoolpay/internal/modules/auth"
	"schoolpay/internal/modules/payment"
	"schoolpay/internal/modules/reconcile"
	"schoolpay/internal/modules/stream"
	"schoolpay/internal/modules/webhook"
	"schoolpay/internal/pkg/jwt"
	"schoolpay/internal/pkg/metrics"
	"schoolpay/internal/pkg/retry"
	"schoolpay/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	log := logrus.New()
	if cfg.AppEnv == "prod" {
		log.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}
	loggerf := func(format string, args ...interface{}) {
		log.Printf(format, args...)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	metrics.Register()

	orderRepo := repository.NewOrderRepository(db)
	ledgerRepo := repository.NewOrderStatusRepository(db)
	deliveryRepo := repository.NewWebhookDeliveryRepository(db)
	userRepo := repository.NewUserRepository(db)

	jwtService := jwt.New(cfg.JWTSecret, cfg.JWTTTL)

	vendor, err := gateway.New(gateway.Config{
		BaseURL:    cfg.VendorBaseURL,
		SigningKey: cfg.VendorSigningKey,
		APIKey:     cfg.VendorAPIKey,
		Timeout:    cfg.VendorTimeout,
		Retry: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
	}, loggerf)
	if err != nil {
		log.Fatalf("vendor gateway: %v", err)
	}

	hub := stream.NewHub()
	defer hub.Close()

	reconcileService := reconcile.NewService(ledgerRepo, orderRepo, hub, loggerf)

	authService := auth.NewService(userRepo, jwtService)
	authHandler := auth.NewHandler(authService, loggerf)

	paymentService := payment.NewService(orderRepo, ledgerRepo, vendor, reconcileService, loggerf)
	paymentHandler := payment.NewHandler(paymentService, loggerf)

	webhookService := webhook.NewService(deliveryRepo, orderRepo, reconcileService, webhook.Config{
		Secret:     cfg.WebhookSecret,
		MaxRetries: cfg.WebhookMaxRetries,
	}, loggerf)
	webhookHandler := webhook.NewHandler(webhookService, loggerf)

	wsHandler := stream.NewWSHandler(hub, jwtService, loggerf)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", wsHandler.HandleWebSocket)

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		webhookHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(jwtService))
		{
			authHandler.RegisterProtectedRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)

			admin := protected.Group("/")
			admin.Use(middleware.AdminOnly())
			{
				paymentHandler.RegisterAdminRoutes(admin)
				webhookHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	log.Infof("listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
