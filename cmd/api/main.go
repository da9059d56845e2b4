package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/bakery-api/internal/config"
	"github.com/flicky/bakery-api/internal/handler"
	"github.com/flicky/bakery-api/internal/invoice"
	"github.com/flicky/bakery-api/internal/lookup"
	"github.com/flicky/bakery-api/internal/middleware"
	"github.com/flicky/bakery-api/internal/model"
	"github.com/flicky/bakery-api/internal/notify"
	"github.com/flicky/bakery-api/internal/repository"
	"github.com/flicky/bakery-api/internal/service"
	"github.com/flicky/bakery-api/internal/storage"
	"github.com/flicky/bakery-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Error("run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis is optional: without it product reads skip the cache and the
	// order worker does not run.
	var redisClient *redis.Client
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, caching disabled", "error", err)
		_ = rc.Close()
	} else {
		redisClient = rc
		defer redisClient.Close()
		log.Info("connected to Redis")
	}

	// RabbitMQ is optional as well; it only feeds the admin order stream.
	var (
		amqpConn *amqp.Connection
		amqpCh   *amqp.Channel
	)
	if conn, err := amqp.Dial(cfg.RabbitMQ.URL); err != nil {
		log.Warn("RabbitMQ unavailable, order events disabled", "error", err)
	} else {
		amqpConn = conn
		defer amqpConn.Close()

		amqpCh, err = amqpConn.Channel()
		if err != nil {
			log.Error("open RabbitMQ channel", "error", err)
			os.Exit(1)
		}
		defer amqpCh.Close()

		if err := worker.SetupRabbitMQ(amqpCh); err != nil {
			log.Error("setup RabbitMQ", "error", err)
			os.Exit(1)
		}
		log.Info("connected to RabbitMQ")
	}

	hub := notify.NewHub(log)
	events, orderWorker := orderEvents(amqpCh, redisClient, hub, log)
	if orderWorker == nil && amqpCh != nil {
		log.Warn("order events disabled, the worker needs both RabbitMQ and Redis")
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	adminRepo := repository.NewAdminRepository(dbPool)
	loginLogRepo := repository.NewLoginLogRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Invoice collaborators
	uploader, err := storage.NewCloudinaryUploader(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	if err != nil {
		log.Error("init cloudinary", "error", err)
		os.Exit(1)
	}
	identities := lookup.NewClient(cfg.Lookup.BaseURL, cfg.Lookup.Token, cfg.Lookup.Timeout)
	renderer := invoice.NewRenderer(cfg.Invoice.TempDir)
	ledger := invoice.NewLedger(cfg.Invoice.LedgerPath)
	issuer := invoice.Issuer{
		RUC:     cfg.Invoice.IssuerRUC,
		Name:    cfg.Invoice.IssuerName,
		Address: cfg.Invoice.IssuerAddress,
	}

	images := storage.NewLocalImageStore(cfg.Upload.Dir, cfg.Upload.MaxSize)
	loc := cfg.Server.Location()

	// Services
	authSvc := service.NewAuthService(userRepo, adminRepo, loginLogRepo, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	userSvc := service.NewUserService(userRepo)
	adminSvc := service.NewAdminService(adminRepo)
	categorySvc := service.NewCategoryService(categoryRepo, images, log)
	productSvc := service.NewProductService(productRepo, categoryRepo, redisClient, images, log)
	orderSvc := service.NewOrderService(orderRepo, productRepo, events, loc, log)
	invoiceSvc := service.NewInvoiceService(orderRepo, userRepo, identities, renderer, uploader, ledger, issuer, log)
	reportSvc := service.NewReportService(orderRepo, categoryRepo, loc)

	if err := authSvc.EnsureSeedAdmin(ctx, cfg.Seed.AdminName, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Error("seed admin", "error", err)
		os.Exit(1)
	}

	// Background jobs
	if orderWorker != nil {
		if err := orderWorker.Start(ctx); err != nil {
			log.Error("start order worker", "error", err)
			os.Exit(1)
		}
	}

	sweeper := worker.NewTempSweeper(cfg.Invoice.TempDir, cfg.Invoice.MaxTempAge, log)
	if err := sweeper.Start(cfg.Invoice.SweepSchedule); err != nil {
		log.Error("start temp sweeper", "error", err)
		os.Exit(1)
	}

	// Handlers
	authH := handler.NewAuthHandler(authSvc, userSvc)
	userH := handler.NewUserHandler(userSvc, adminSvc)
	categoryH := handler.NewCategoryHandler(categorySvc, images)
	productH := handler.NewProductHandler(productSvc, images)
	orderH := handler.NewOrderHandler(orderSvc)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	reportH := handler.NewReportHandler(reportSvc)
	feedH := handler.NewFeedHandler(hub)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Static("/uploads", cfg.Upload.Dir)

	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	userAuth := middleware.UserAuth(cfg.JWT.Secret, userSvc)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/admin/login", authH.AdminLogin)

		me := v1.Group("/me", userAuth)
		me.GET("", authH.Me)
		me.PUT("", authH.UpdateMe)
		me.PUT("/password", authH.ChangePassword)

		v1.GET("/categories", categoryH.List)
		v1.GET("/categories/:id", categoryH.Get)

		v1.GET("/products", productH.List)
		v1.GET("/products/featured", productH.Featured)
		v1.GET("/products/:id", productH.Get)

		orders := v1.Group("/orders", userAuth)
		orders.POST("", orderH.CreateOrder)
		orders.GET("", orderH.ListOrders)
		orders.GET("/:id", orderH.GetOrder)
		orders.POST("/:id/cancel", orderH.CancelOrder)

		invoices := v1.Group("/invoices", userAuth)
		invoices.POST("", invoiceH.Emit)
		invoices.GET("", invoiceH.ListMine)

		admin := v1.Group("/admin", middleware.AdminAuth(cfg.JWT.Secret, adminSvc))
		admin.GET("/categories", categoryH.AdminList)
		admin.POST("/categories", categoryH.Create)
		admin.PUT("/categories/:id", categoryH.Update)
		admin.DELETE("/categories/:id", categoryH.Delete)

		admin.GET("/products", productH.AdminList)
		admin.POST("/products", productH.Create)
		admin.PUT("/products/:id", productH.Update)
		admin.DELETE("/products/:id", productH.Delete)

		admin.GET("/users", userH.List)
		admin.GET("/users/:id", userH.Get)
		admin.PATCH("/users/:id/active", userH.SetActive)

		admin.GET("/admins", userH.ListAdmins)
		admin.POST("/admins", middleware.RequireRole(model.AdminRoleSuperAdmin), userH.CreateAdmin)

		admin.GET("/orders", orderH.AdminList)
		admin.GET("/orders/feed", feedH.Orders)
		admin.GET("/orders/:id", orderH.AdminGet)
		admin.PATCH("/orders/:id/status", orderH.UpdateStatus)

		admin.GET("/invoices", invoiceH.AdminList)
		admin.GET("/invoices/:series/:number", invoiceH.AdminFind)

		reports := admin.Group("/reports")
		reports.GET("/summary", reportH.Summary)
		reports.GET("/sales", reportH.Sales)
		reports.GET("/sales/export", reportH.ExportSales)
		reports.GET("/top-products", reportH.TopProducts)
		reports.GET("/top-categories", reportH.TopCategories)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	if orderWorker != nil {
		orderWorker.Stop()
	}
	sweeper.Stop()
	hub.Close()
	cancel()
	log.Info("server stopped")
}

// orderEvents returns the publisher and its consumer together. Events are
// only published while a worker drains the queue, so both RabbitMQ and Redis
// must be up; otherwise both are nil.
func orderEvents(ch *amqp.Channel, redisClient *redis.Client, hub *notify.Hub, log *slog.Logger) (service.EventPublisher, *worker.OrderWorker) {
	if ch == nil || redisClient == nil {
		return nil, nil
	}
	return worker.NewPublisher(ch), worker.NewOrderWorker(ch, hub, worker.NewRedisIdempotency(redisClient), log)
}
