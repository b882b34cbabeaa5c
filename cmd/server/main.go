package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/api"
	"github.com/ajaykumarbhatane/dental-management/internal/cache"
	"github.com/ajaykumarbhatane/dental-management/internal/config"
	"github.com/ajaykumarbhatane/dental-management/internal/db"
	"github.com/ajaykumarbhatane/dental-management/internal/middleware"
	"github.com/ajaykumarbhatane/dental-management/internal/observ"
	"github.com/ajaykumarbhatane/dental-management/internal/repository/postgres"
	"github.com/ajaykumarbhatane/dental-management/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent request or deadline; Background() is the
	// right root. Each HTTP request later gets its own context.
	ctx := context.Background()

	if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisCache, err := cache.New(ctx, cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisCache.Close()

	// Repositories share the pool; it is goroutine-safe. Assigning to
	// the concrete stores here, interfaces are proven at the service
	// constructors.
	pool := database.Pool()
	clinicRepo := postgres.NewClinicStore(pool)
	userRepo := postgres.NewUserStore(pool)
	profileRepo := postgres.NewProfileStore(pool)
	treatmentRepo := postgres.NewTreatmentStore(pool)

	userSvc := service.NewUserService(userRepo, profileRepo, logger)
	treatmentSvc := service.NewTreatmentService(treatmentRepo, userRepo, logger)
	clinicSvc := service.NewClinicService(clinicRepo, redisCache, logger)

	authHandler := api.NewAuthHandler(userRepo, clinicRepo, userSvc, redisCache,
		cfg.JWTSecret, cfg.TokenTTL, logger)
	userHandler := api.NewUserHandler(userSvc, logger)
	treatmentHandler := api.NewTreatmentHandler(treatmentSvc, cfg.UploadDir, logger)
	clinicHandler := api.NewClinicHandler(clinicSvc, logger)

	metrics := observ.NewMetrics("dental")
	metrics.Register(prometheus.DefaultRegisterer)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())

	// The React dashboard runs on its own origin.
	srv.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	logger.Info("starting dental-management",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	// Public: health for load balancers, metrics for the scraper, and
	// the endpoints that produce a token in the first place.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	srv.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv.POST("/v1/auth/register", authHandler.Register)
	srv.POST("/v1/auth/login", authHandler.Login)

	// Everything else requires a valid, non-revoked JWT.
	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret, redisCache))

	v1.POST("/auth/logout", authHandler.Logout)
	v1.GET("/auth/me", authHandler.Me)
	v1.POST("/auth/change-password", authHandler.ChangePassword)

	v1.GET("/users", userHandler.List)
	v1.GET("/users/deleted", userHandler.ListDeleted)
	v1.POST("/users", userHandler.Create)
	v1.GET("/users/:id", userHandler.Get)
	v1.PUT("/users/:id", userHandler.Update)
	v1.DELETE("/users/:id", userHandler.Delete)
	v1.POST("/users/:id/restore", userHandler.Restore)
	v1.GET("/users/:id/profile", userHandler.GetProfile)
	v1.PUT("/users/:id/profile", userHandler.UpdateProfile)

	v1.GET("/profiles", userHandler.ListProfiles)
	v1.GET("/profiles/me", userHandler.GetMyProfile)

	v1.GET("/treatments", treatmentHandler.List)
	v1.GET("/treatments/upcoming", treatmentHandler.Upcoming)
	v1.GET("/treatments/overdue", treatmentHandler.Overdue)
	v1.GET("/treatments/deleted", treatmentHandler.ListDeleted)
	v1.POST("/treatments", treatmentHandler.Create)
	v1.GET("/treatments/:id", treatmentHandler.Get)
	v1.PUT("/treatments/:id", treatmentHandler.Update)
	v1.DELETE("/treatments/:id", treatmentHandler.Delete)
	v1.POST("/treatments/:id/complete", treatmentHandler.Complete)
	v1.POST("/treatments/:id/cancel", treatmentHandler.Cancel)
	v1.POST("/treatments/:id/image", treatmentHandler.UploadImage)
	v1.POST("/treatments/:id/restore", treatmentHandler.Restore)

	v1.GET("/clinic", clinicHandler.Get)
	v1.PUT("/clinic", clinicHandler.Update)
	v1.GET("/clinic/stats", clinicHandler.Stats)

	return srv.Run(":" + cfg.Port)
}
