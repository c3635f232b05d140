package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisv9 "github.com/redis/go-redis/v9"

	"marketplace/internal/config"
	"marketplace/internal/consumer"
	"marketplace/internal/database"
	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/monitor"
	"marketplace/internal/redis"
	"marketplace/internal/repository"
	"marketplace/internal/service/order"
	"marketplace/internal/service/payment"
	"marketplace/internal/utils"
	"marketplace/pkg/limiter"
	"marketplace/pkg/lock"
	"marketplace/pkg/log"
	"marketplace/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})

	if err := database.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	if err := database.CreateIndexes(db); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	if err := redis.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize redis")
	}
	defer redis.Close()
	redisClient := redis.GetClient()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	var metrics *monitor.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = monitor.NewMetricsCollector()
		go metrics.StartSystemMetricsCollection(context.Background())
	}

	tracer, err := monitor.NewTracer(&monitor.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Server.Mode,
		JaegerEndpoint: cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize tracer")
	}

	// Delay queue backing the auto-cancel worker
	var jobs queue.DelayQueue
	if cfg.Queue.Driver == "memory" {
		jobs = queue.NewMemoryDelayQueue()
	} else {
		jobs = queue.NewRedisDelayQueue(redisClient, cfg.Queue.Key)
	}
	defer jobs.Close()

	repos := repository.NewRepositories(db)
	txManager := repository.NewTxManager(db)
	locks := lock.NewRedisCoordinator(redisClient, cfg.Order.LockRetries, cfg.Order.LockRetryDelay)

	orderService := order.NewOrderService(repos, txManager, locks, jobs, order.Config{
		LockTTL:     cfg.Order.LockTTL,
		CancelDelay: cfg.Order.CancelDelay,
		BankAccount: cfg.Payment.BankAccount,
		BankName:    cfg.Payment.BankName,
		QRBaseURL:   cfg.Payment.QRBaseURL,
	})
	paymentService := payment.NewPaymentService(txManager)

	cancelConsumer := consumer.NewCancelConsumer(orderService, jobs, metrics, consumer.Config{
		QueueName:    cfg.Queue.Key,
		PollInterval: cfg.Queue.PollInterval,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		JobTimeout:   cfg.Queue.JobTimeout,
	})
	cancelConsumer.Start(context.Background())
	defer cancelConsumer.Stop()

	router := setupRouter(cfg, redisClient, orderService, paymentService, metrics)

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderMB << 20,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}
	if err := tracer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Failed to shut down tracer")
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, redisClient *redisv9.Client, orderService order.OrderService, paymentService payment.PaymentService, metrics *monitor.MetricsCollector) *gin.Engine {
	router := gin.New()

	router.Use(middleware.LoggerWithMetrics(metrics))
	router.Use(middleware.Recovery())
	if cfg.Security.CORS.Enabled {
		router.Use(middleware.CORS())
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(float64(cfg.RateLimit.Global.RPS), cfg.RateLimit.Global.Burst))
	}

	router.GET("/health", healthCheck)
	router.GET("/ping", ping)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.Expire,
		cfg.Security.JWT.RefreshTTL,
	)
	tokenValidator := func(token string) (uint64, string, error) {
		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			return 0, "", err
		}
		return claims.UserID, claims.Username, nil
	}

	orderHandler := handler.NewOrderHandler(orderService, metrics)
	paymentHandler := handler.NewPaymentHandler(paymentService, metrics)

	api := router.Group("/api/v1")
	{
		// Bank gateway webhook, API key only
		paymentGroup := api.Group("/payment")
		paymentGroup.Use(middleware.WebhookAuth(cfg.Security.Webhook.APIKey))
		{
			paymentGroup.POST("/receiver", paymentHandler.Receiver)
		}

		protected := api.Group("")
		protected.Use(middleware.Auth(tokenValidator))
		{
			orders := protected.Group("/orders")
			{
				checkoutLimiter := limiter.NewSlidingWindowLimiter(
					redisClient,
					cfg.RateLimit.Checkout.Limit,
					cfg.RateLimit.Checkout.Window,
				)
				orders.POST("", middleware.CheckoutRateLimit(checkoutLimiter), orderHandler.Checkout)
				orders.GET("", orderHandler.ListShopOrders)
				orders.GET("/my", orderHandler.ListMyOrders)
				orders.GET("/:id", orderHandler.GetOrder)
				orders.PUT("/:id/status", orderHandler.UpdateStatus)
				orders.POST("/:id/cancel", orderHandler.Cancel)
			}
		}
	}

	return router
}

func healthCheck(c *gin.Context) {
	services := map[string]interface{}{
		"database": checkComponent(database.Health()),
		"redis":    checkComponent(redis.Health()),
	}

	status := http.StatusOK
	overall := "ok"
	for _, s := range services {
		if !s.(map[string]interface{})["healthy"].(bool) {
			status = http.StatusServiceUnavailable
			overall = "error"
		}
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"timestamp": time.Now().Unix(),
		"services":  services,
	})
}

func checkComponent(err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}
	return map[string]interface{}{
		"healthy": true,
	}
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}
