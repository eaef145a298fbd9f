// Package server contains the HTTP handlers for the blog API.
package server

import (
	"context"
	"fmt"
	"time"

	"quill/internal/auth"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	rateLimiter    *middleware.RateLimiter
	thumbnails     *storage.Thumbnails

	authService    *service.AuthService
	postService    *service.PostService
	commentService *service.CommentService
	likeService    *service.LikeService
	tagService     *service.TagService
	postTagService *service.PostTagService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limiting then falls back to in-process
// buckets and token revocation is disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      ttl,
	})
	if err != nil {
		return nil, err
	}

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	tagRepo := repository.NewTagRepository(db)
	postTagRepo := repository.NewPostTagRepository(db)

	thumbnails := storage.NewThumbnails(storage.Config{
		Dir:          cfg.UploadDir,
		MaxBytes:     cfg.UploadMaxBytes(),
		MaxDimension: cfg.ThumbnailMaxDimension,
	})

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill-api"),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		thumbnails:     thumbnails,

		authService:    service.NewAuthService(userRepo, auth.NewHasher(cfg.BcryptCost), tokens, auth.NewRedisRevocations(redisClient)),
		postService:    service.NewPostService(postRepo, thumbnails),
		commentService: service.NewCommentService(commentRepo, postRepo),
		likeService:    service.NewLikeService(tx, likeRepo, postRepo),
		tagService:     service.NewTagService(tx, tagRepo, postTagRepo),
		postTagService: service.NewPostTagService(tx, postTagRepo, postRepo, tagRepo),
	}, nil
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Quill API",
		BodyLimit:    int(s.thumbnails.MaxBytes()) + 1024*1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
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

	// Thumbnails are served from this origin to browser clients elsewhere.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.RequestLogger(s.config.RequestLogBodyLimit))

	// CORS runs before the limiter so throttled responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: middleware.ClientIP,
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited.WithLabelValues("global").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Static("/uploads", s.thumbnails.Dir())

	authRequired := middleware.IdentityRequired(s.authService)
	authOptional := middleware.ResolveIdentity(s.authService)
	api := app.Group("/api/v1")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", s.rateLimiter.Handler("signup", 5, 10*time.Minute, middleware.FailOpen), s.Signup)
	authRoutes.Post("/login", s.rateLimiter.Handler("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	authRoutes.Post("/logout", authRequired, s.Logout)
	authRoutes.Get("/me", authRequired, s.Me)

	blogs := api.Group("/blogs")
	blogs.Post("/add-blog", authRequired, s.rateLimiter.Handler("post_create", 10, time.Minute, middleware.FailOpen), s.AddBlog)
	blogs.Put("/update-blog/:blogid", authRequired, s.UpdateBlog)
	blogs.Get("/get-all-blogs", authRequired, s.GetAllBlogs)
	blogs.Get("/get-blog/:blogid", authOptional, s.GetBlog)
	blogs.Delete("/delete-blog/:blogid", authRequired, s.DeleteBlog)

	comments := api.Group("/comments")
	comments.Post("/add-comment", authRequired, s.rateLimiter.Handler("comment_create", 30, time.Minute, middleware.FailOpen), s.AddComment)
	comments.Put("/update-comment/:commentId", authRequired, s.UpdateComment)
	comments.Get("/get-comments/:postId", authOptional, s.GetComments)
	comments.Delete("/delete-comment/:commentId", authRequired, s.DeleteComment)

	likes := api.Group("/likes")
	likes.Post("/like", authRequired, s.LikePost)
	likes.Delete("/unlike/:postId", authRequired, s.UnlikePost)
	likes.Get("/count/:postId", authOptional, s.LikesCount)
	likes.Get("/is-liked/:postId", authRequired, s.IsLiked)
	likes.Get("/users/:postId", authOptional, s.LikedBy)

	tags := api.Group("/tags")
	tags.Post("/create-tag", authRequired, s.CreateTag)
	tags.Put("/update-tag/:tagId", authRequired, s.UpdateTag)
	tags.Delete("/delete-tag/:tagId", authRequired, s.DeleteTag)
	tags.Get("/get-tags/:tagId", authOptional, s.GetTag)
	tags.Get("/get-all-tags", authOptional, s.GetAllTags)

	postTags := api.Group("/post-tags")
	postTags.Post("/add-post-tag", authRequired, s.AddPostTag)
	postTags.Delete("/remove-post-tag/:postId/:tagId", authRequired, s.RemovePostTag)
	postTags.Get("/get-all-tags-for-post/:postId", authOptional, s.TagsForPost)
	postTags.Get("/get-posts-by-tag/:tagId", authOptional, s.PostsByTag)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness check requests. Redis is optional: a
// missing client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
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
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	observability.Logger.Info("Server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				observability.Logger.Error("error closing sql DB", "error", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", "error", rerr)
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return nil
}

// errorHandler funnels errors returned by handlers and middleware through
// the standard error body.
func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		kind := models.KindInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			kind = models.KindNotFound
		case fe.Code == fiber.StatusRequestEntityTooLarge || fe.Code < fiber.StatusInternalServerError:
			kind = models.KindInvalidArgument
		}
		return models.RespondWithError(c, fe.Code, &models.AppError{Code: kind, Message: fe.Message})
	}

	observability.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}
