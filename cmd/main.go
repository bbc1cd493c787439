package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/handler"
	"github.com/Amoako419/PhotoShare/internal/isolation"
	"github.com/Amoako419/PhotoShare/internal/middleware"
	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/rate"
	"github.com/Amoako419/PhotoShare/internal/registry"
	"github.com/Amoako419/PhotoShare/internal/storage"
	"github.com/Amoako419/PhotoShare/internal/token"
	"github.com/Amoako419/PhotoShare/pkg/config"
	"github.com/Amoako419/PhotoShare/pkg/database"
	"github.com/Amoako419/PhotoShare/pkg/jwtutil"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting photoshare service", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(db,
		&model.Tenant{}, &model.User{}, &model.Album{}, &model.Photo{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Register tenant-scoped collections. Panics at startup if a model
	// lacks the tenant column, before any request can touch it.
	isolation.MustRegister(&model.Album{}, &model.Photo{})

	// Revocation store and rate limiter share the redis client when one
	// is configured; otherwise both fall back to in-process stores.
	var revoked token.RevocationStore
	var limiter rate.Limiter
	if cfg.Redis.Addr != "" {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		revoked = token.NewRedisRevocationStore(client)
		limiter = rate.NewRedisLimiter(client, &cfg.RateLimit)
	} else {
		log.Warn("Redis not configured, using in-process stores (single instance only)")
		revoked = token.NewMemoryRevocationStore()
		limiter = rate.NewMemoryLimiter(&cfg.RateLimit)
	}

	reg := registry.New(db)
	tokens := token.NewService(jwtutil.New(&cfg.JWT), reg, revoked)

	store, err := storage.New(context.Background(), &cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	h := handler.New(db, cfg, tokens, reg, store, limiter)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	e.GET("/branding", h.PublicBranding, middleware.RateLimit(limiter, "branding"))

	// Auth routes. Everything that accepts a church code sits behind
	// the two-window limiter.
	auth := e.Group("/auth")
	auth.POST("/signup", h.Signup, middleware.RateLimit(limiter, "signup"))
	auth.POST("/member-signup", h.MemberSignup, middleware.RateLimit(limiter, "signup"))
	auth.POST("/admin-signup", h.AdminSignup, middleware.RateLimit(limiter, "signup"))
	auth.POST("/validate-code", h.ValidateCode, middleware.RateLimit(limiter, "validate_code"))
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.POST("/assign-church", h.AssignChurch,
		middleware.Authenticate(tokens, reg),
		middleware.RateLimit(limiter, "assign_church"))

	// Authenticated routes with resolved tenant context
	api := e.Group("/api",
		middleware.Authenticate(tokens, reg),
		middleware.ResolveTenant(reg))

	api.GET("/me", h.Me)

	// Church setup and settings. Activation runs before the church is
	// active, so it cannot sit behind the active-tenant gate.
	church := api.Group("/church")
	church.POST("/activate", h.ActivateChurch)
	church.GET("/settings", h.GetChurchSettings, middleware.RequireAdmin())
	church.PATCH("/settings", h.UpdateChurchSettings, middleware.RequireAdmin())
	church.GET("/branding", h.GetBranding, middleware.RequireTenant())
	church.POST("/branding", h.UploadBranding, middleware.RequireAdmin())

	// Tenant-scoped collections behind the full isolation gate.
	// Members read, admins write.
	albums := api.Group("/albums", middleware.RequireTenant())
	albums.GET("", h.ListAlbums)
	albums.POST("", h.CreateAlbum, middleware.RequireAdmin())
	albums.GET("/:id", h.GetAlbum)
	albums.PATCH("/:id", h.UpdateAlbum, middleware.RequireAdmin())
	albums.DELETE("/:id", h.DeleteAlbum, middleware.RequireAdmin())

	photos := api.Group("/photos", middleware.RequireTenant())
	photos.GET("", h.ListPhotos)
	photos.POST("", h.UploadPhoto, middleware.RequireAdmin())
	photos.GET("/:id", h.GetPhoto)
	photos.GET("/:id/url", h.PhotoURL)
	photos.PATCH("/:id", h.UpdatePhoto, middleware.RequireAdmin())
	photos.DELETE("/:id", h.DeletePhoto, middleware.RequireAdmin())

	// Platform routes: superadmin only, never tenant-scoped
	platform := e.Group("/platform",
		middleware.Authenticate(tokens, reg),
		middleware.RequireSuperAdmin())
	platform.POST("/churches", h.CreateChurch)
	platform.GET("/churches", h.ListChurches)
	platform.GET("/churches/:id", h.GetChurch)
	platform.GET("/churches/:id/stats", h.ChurchStats)
	platform.POST("/churches/:id/status", h.SetChurchStatus)
	platform.POST("/churches/:id/rotate-code", h.RotateChurchCode)

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			log.Info("Shutting down the server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
