package server

import (
	"fmt"
	"net/http"
	"time"

	"optimart/internal/config"
	"optimart/internal/database"
	custommiddleware "optimart/internal/middleware"
	"optimart/internal/repository"
	"optimart/internal/service"
	"optimart/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSOrigins, cfg.Server.Env == "development"))

	// Health check endpoint with pool stats
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, db.Health())
	})

	// Redis backs the write-path rate limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(db.DB())
	typeRepo := repository.NewFacetRepository(db.DB(), repository.FacetTypes)
	brandRepo := repository.NewFacetRepository(db.DB(), repository.FacetBrands)
	productRepo := repository.NewProductRepository(db.DB())
	orderingRepo := repository.NewOrderingRepository(db.DB())

	// Initialize services
	catalogService := service.NewCatalogService(categoryRepo, typeRepo, brandRepo, productRepo, orderingRepo)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)

	// Editor route guards: verified token, editor role, then the rate limit
	// keyed by editor identity.
	authMiddleware := custommiddleware.EditorAuthMiddleware(cfg.Auth.JWTSecret, logger)
	requireEditor := custommiddleware.RequireEditor(logger)
	rateLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 120,
		Window:            time.Minute,
		KeyPrefix:         "catalog:writes",
	}, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router, authMiddleware, requireEditor, rateLimiter)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
