// Package server contains the HTTP and WebSocket handlers for the listing API.
package server

import (
	"context"
	"fmt"
	"time"

	_ "earthhome/docs" // swagger docs
	"earthhome/internal/cache"
	"earthhome/internal/config"
	"earthhome/internal/database"
	"earthhome/internal/featureflags"
	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/notifications"
	"earthhome/internal/repository"
	"earthhome/internal/service"
	"earthhome/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// maxUploadBodySize covers ten images at the per-file ceiling plus form overhead.
const maxUploadBodySize = 10*5*10*1024*1024 + 1024*1024

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	store          storage.ObjectStore
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	propertyRepo repository.PropertyRepository
	favoriteRepo repository.FavoriteRepository

	authService     *service.AuthService
	propertyService *service.PropertyService
	favoriteService *service.FavoriteService
	uploadService   *service.UploadService
	adminService    *service.AdminService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage setup failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redis client disables caching, rate limiting and cross-instance fan-out.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStore) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("earthhome-api"),
		store:          store,
		hub:            notifications.NewHub(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       repository.NewUserRepository(db),
		sessionRepo:    repository.NewSessionRepository(db),
		propertyRepo:   repository.NewPropertyRepository(db),
		favoriteRepo:   repository.NewFavoriteRepository(db),
	}

	authCfg := service.AuthConfig{Secret: cfg.AuthSecret, Issuer: cfg.AuthURL}
	s.authService = service.NewAuthService(
		s.userRepo,
		repository.NewAccountRepository(db),
		s.sessionRepo,
		repository.NewVerificationRepository(db),
		authCfg,
	)
	s.propertyService = service.NewPropertyService(s.propertyRepo, s.favoriteRepo, store, s.hub)
	s.favoriteService = service.NewFavoriteService(s.favoriteRepo, s.propertyRepo)
	s.uploadService = service.NewUploadService(store, s.featureFlags)
	s.adminService = service.NewAdminService(s.userRepo, s.sessionRepo, service.DefaultTokenTTL)

	return s, nil
}

// SetupMiddleware configures all middleware for the app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Propagate request and trace ids into the request context
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderUpgrade) != ""
		},
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Success: false,
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if disk, ok := s.store.(*storage.DiskStore); ok {
		app.Static(storage.DiskURLPrefix, disk.Root(), fiber.Static{ByteRange: true})
	}

	app.Get("/ws/listings", s.ListingFeedUpgrade, s.ListingFeedHandler())
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	api.Get("/feature-flags", s.OptionalAuth(), s.GetFeatureFlags)

	auth := api.Group("/auth")
	auth.Post("/sign-up", middleware.RateLimit(s.redis, 5, 10*time.Minute, "sign_up"), s.SignUp)
	auth.Post("/sign-in", middleware.RateLimit(s.redis, 10, 5*time.Minute, "sign_in"), s.SignIn)
	auth.Post("/sign-out", s.AuthRequired(), s.SignOut)
	auth.Get("/get-session", s.AuthRequired(), s.GetSession)
	auth.Get("/verify-email", middleware.RateLimit(s.redis, 10, 10*time.Minute, "verify_email"), s.VerifyEmail)

	properties := api.Group("/properties")
	properties.Get("/", s.OptionalAuth(), s.GetProperties)
	properties.Get("/:identifier", s.OptionalAuth(), s.GetProperty)
	properties.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 20, time.Minute, "create_property"), s.CreateProperty)
	properties.Put("/:id", s.AuthRequired(), s.UpdateProperty)
	properties.Delete("/:id", s.AuthRequired(), s.DeleteProperty)

	dashboard := api.Group("/dashboard", s.AuthRequired())
	dashboard.Get("/properties", s.GetMyProperties)
	dashboard.Get("/stats", s.GetMyStats)

	favorites := api.Group("/favorites", s.AuthRequired())
	favorites.Get("/", s.GetFavorites)
	favorites.Post("/:id/toggle", middleware.RateLimit(s.redis, 60, time.Minute, "toggle_favorite"), s.ToggleFavorite)

	uploads := api.Group("/uploads", s.AuthRequired(), middleware.RateLimit(s.redis, 30, 10*time.Minute, "uploads"))
	uploads.Post("/property-images", s.UploadPropertyImages)
	uploads.Post("/property-documents", s.UploadPropertyDocuments)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/users", s.ListUsers)
	admin.Put("/users/:id/role", s.SetUserRole)
	admin.Post("/users/:id/ban", s.BanUser)
	admin.Post("/users/:id/unban", s.UnbanUser)
	admin.Get("/stats", s.GetGlobalStats)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// newApp builds the fiber application with middleware and routes installed.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Earth & Home API",
		BodyLimit: maxUploadBodySize,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	go func() {
		if err := s.hub.StartWiring(s.shutdownCtx); err != nil {
			middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
		}
	}()

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", "error", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
