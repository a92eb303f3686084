// Package server contains the HTTP and WebSocket handlers of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "tubeclone/docs" // swagger docs
	"tubeclone/internal/cache"
	"tubeclone/internal/catalog"
	"tubeclone/internal/config"
	"tubeclone/internal/database"
	"tubeclone/internal/featureflags"
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/notify"
	"tubeclone/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          storage.Store
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	hub            *notify.Hub
	notifier       *notify.Notifier
	catalog        *catalog.Simulator
	featureFlags   *featureflags.Manager
	tokens         *middleware.ClientTokens
	limiter        *middleware.Limiter
}

// Backends are the connections selected by the storage driver. DB and
// Redis are nil when the configuration does not use them.
type Backends struct {
	Store storage.Store
	DB    *gorm.DB
	Redis *redis.Client
}

// OpenBackends connects the store named by cfg.StorageDriver, plus Redis for
// pub/sub and rate limits when it is reachable.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}
	var err error

	switch cfg.StorageDriver {
	case config.StorageRedis:
		b.Redis, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		b.Store = storage.NewRedisStore(b.Redis)
	case config.StoragePostgres, config.StorageSQLite:
		b.DB, err = database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		b.Store = storage.NewSQLStore(b.DB)
	default:
		b.Store = storage.NewMemoryStore()
	}

	// Redis is optional for the other drivers: it only carries toasts
	// between instances and rate limit counters.
	if b.Redis == nil && cfg.RedisURL != "" {
		b.Redis, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("redis unavailable, continuing without pub/sub", "error", err)
			b.Redis = nil
		}
	}
	return b, nil
}

// NewServer connects the backends named by cfg and creates a server.
func NewServer(cfg *config.Config) (*Server, error) {
	b, err := OpenBackends(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, b.Store, b.DB, b.Redis)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// db and redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, store storage.Store, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if store == nil {
		return nil, errors.New("server: nil store")
	}

	if cfg.RateLimitsEnabled() && redisClient == nil {
		middleware.Logger.Warn("rate limits enabled without redis, requests will not be limited")
	}

	hub := notify.NewHub()
	return &Server{
		config:         cfg,
		store:          store,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("tubeclone-api"),
		hub:            hub,
		notifier:       notify.NewNotifier(redisClient, hub),
		catalog: catalog.New(
			catalog.WithSeed(cfg.CatalogSeed),
			catalog.WithDelay(cfg.CatalogDelay),
		),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		tokens:       middleware.NewClientTokens(cfg.ClientTokenSecret, cfg.ClientTokenTTL),
		limiter:      middleware.NewLimiter(redisClient, cfg.RateLimitsEnabled()),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "tubeclone metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public routes
	api.Post("/clients", s.limiter.Limit("register_client", 20, time.Minute), s.RegisterClient)
	api.Get("/categories", s.GetCategories)
	api.Get("/routes/resolve", s.ResolveRoute)

	requireClient := middleware.ClientRequired(s.tokens)
	api.Get("/feature-flags", requireClient, s.GetFeatureFlags)

	sess := api.Group("/session", requireClient)
	sess.Get("/", s.GetSession)
	sess.Post("/signin", s.limiter.Limit("signin", 10, time.Minute), s.SignIn)
	sess.Post("/signup", s.limiter.Limit("signup", 5, time.Minute), s.SignUp)
	sess.Post("/signout", s.SignOut)
	sess.Put("/profile", s.UpdateProfile)

	videos := api.Group("/videos", requireClient)
	videos.Get("/", s.ListVideos)
	videos.Get("/:id", s.GetVideo)
	videos.Post("/:id/like", s.ToggleLike)
	videos.Post("/:id/save", s.ToggleSave)

	api.Get("/search", requireClient, s.Search)
	api.Post("/history", requireClient, s.RecordHistory)
	api.Get("/library/:list", requireClient, s.GetLibraryList)

	api.Get("/ws", requireClient, s.WebSocketUpgrade(), s.WebSocketViewHandler())
}

// LivenessCheck reports whether the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether storage and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storageStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "storage ping failed", "error", err)
		storageStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	// Redis is optional unless it is the store, which the storage check covers.
	if storageStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"storage": storageStatus,
			"redis":   redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the fiber app with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "tubeclone API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
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

	s.app = s.App()

	if err := s.notifier.StartSubscriber(ctx); err != nil {
		middleware.Logger.Warn("toast subscriber not started", "error", err)
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "storage", s.config.StorageDriver)
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
		middleware.Logger.Error("error shutting down live view hub", "error", err)
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
