package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/cinelog/core/internal/adapters/http"
	"github.com/cinelog/core/internal/adapters/repository"
	"github.com/cinelog/core/internal/application/services"
	"github.com/cinelog/core/internal/domain/entities"
	"github.com/cinelog/core/internal/infrastructure/config"
	"github.com/cinelog/core/internal/infrastructure/logger"
	"github.com/cinelog/core/internal/infrastructure/store"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	store  *store.Store
}

// New creates a new server instance
func New(cfg *config.Config, st *store.Store, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repository
	itemRepo := repository.NewItemRepository(st)

	// Initialize services
	commentService := services.NewCommentService(itemRepo, cfg.Auth, appLogger)
	cardService := services.NewCardService(itemRepo, cfg.Auth, appLogger)
	itemService := services.NewItemService(itemRepo, appLogger)
	taskService := services.NewTaskService(itemRepo, appLogger)
	movieService := services.NewMovieService(cfg.OMDb, itemRepo, appLogger)
	uploadService := services.NewUploadService(cfg.Uploads, appLogger)

	// Initialize handlers
	authExtractor := httpHandlers.NewAuthExtractor(cfg.Auth)
	commentHandler := httpHandlers.NewCommentHandler(commentService, authExtractor, appLogger)
	cardHandler := httpHandlers.NewCardHandler(cardService, authExtractor, appLogger)
	itemHandler := httpHandlers.NewItemHandler(itemService, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(taskService, appLogger)
	movieHandler := httpHandlers.NewMovieHandler(movieService, appLogger)
	uploadHandler := httpHandlers.NewUploadHandler(uploadService, appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  st,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(commentHandler, cardHandler, itemHandler, taskHandler, movieHandler, uploadHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			s.config.Auth.TokenHeader, s.config.Auth.AdminHeader,
		},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(commentHandler *httpHandlers.CommentHandler, cardHandler *httpHandlers.CardHandler, itemHandler *httpHandlers.ItemHandler, taskHandler *httpHandlers.TaskHandler, movieHandler *httpHandlers.MovieHandler, uploadHandler *httpHandlers.UploadHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Static serving for stored uploads
	s.echo.Static(s.config.Uploads.BaseURL, s.config.Uploads.Dir)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Comment routes
	commentGroup := v1.Group("/comments")
	commentGroup.GET("", commentHandler.ListComments)
	commentGroup.POST("", commentHandler.CreateComment)
	commentGroup.GET("/:id", commentHandler.GetComment)
	commentGroup.PUT("/:id", commentHandler.ReplaceComment)
	commentGroup.PATCH("/:id", commentHandler.PatchComment)
	commentGroup.DELETE("/:id", commentHandler.DeleteComment)

	// Card routes
	cardGroup := v1.Group("/cards")
	cardGroup.GET("", cardHandler.ListCards)
	cardGroup.POST("", cardHandler.CreateCard)
	cardGroup.GET("/:id", cardHandler.GetCard)
	cardGroup.PUT("/:id", cardHandler.ReplaceCard)
	cardGroup.PATCH("/:id", cardHandler.PatchCard)
	cardGroup.DELETE("/:id", cardHandler.DeleteCard)

	// Generic item routes
	itemGroup := v1.Group("/items")
	itemGroup.GET("", itemHandler.ListItems)
	itemGroup.POST("", itemHandler.CreateItem)
	itemGroup.GET("/:id", itemHandler.GetItem)
	itemGroup.PUT("/:id", itemHandler.ReplaceItem)
	itemGroup.PATCH("/:id", itemHandler.PatchItem)
	itemGroup.DELETE("/:id", itemHandler.DeleteItem)

	// Task routes
	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.ReplaceTask)
	taskGroup.PATCH("/:id", taskHandler.PatchTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)

	// Upload route
	v1.POST("/uploads", uploadHandler.UploadImage)

	// Movie metadata proxy routes
	movieGroup := v1.Group("/movies")
	movieGroup.GET("/search", movieHandler.SearchMovies)
	movieGroup.GET("/:imdbID", movieHandler.GetMovie)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Store health check
	if err := s.store.HealthCheck(); err != nil {
		status = "error"
		checks["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["store"] = map[string]interface{}{
			"status": "ok",
			"path":   s.store.Path(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	// Check if the collection file is reachable
	if err := s.store.HealthCheck(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "store_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler maps domain errors onto HTTP responses. Every error
// is caught here; none crash the process. Storage failures surface as a
// generic server error without internal detail, and validation errors
// carry the full accumulated field list.
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			body interface{}
		)

		var (
			validationErr *entities.ValidationError
			storageErr    *entities.StorageError
			upstreamErr   *entities.UpstreamError
			httpErr       *echo.HTTPError
		)

		switch {
		case errors.As(err, &validationErr):
			code = http.StatusBadRequest
			body = map[string]interface{}{
				"error":   "validation failed",
				"details": validationErr.Fields,
			}
		case errors.Is(err, entities.ErrUnauthenticated):
			code = http.StatusUnauthorized
			body = map[string]string{"error": "auth token missing or too short"}
		case errors.Is(err, entities.ErrForbidden):
			code = http.StatusForbidden
			body = map[string]string{"error": "not the owner of this item"}
			logger.LogOwnershipDenied(c.Path(), c.Param("id"), c.RealIP())
		case errors.Is(err, entities.ErrNotFound):
			code = http.StatusNotFound
			body = map[string]string{"error": "item not found"}
		case errors.As(err, &storageErr):
			code = http.StatusInternalServerError
			body = map[string]string{"error": "storage failure"}
		case errors.As(err, &upstreamErr):
			code = upstreamErr.Status
			body = map[string]string{"error": upstreamErr.Message}
		case errors.As(err, &httpErr):
			code = httpErr.Code
			switch m := httpErr.Message.(type) {
			case string:
				body = map[string]string{"error": m}
			default:
				body = httpErr.Message
			}
		default:
			body = map[string]string{"error": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, body)
			}
			if err != nil {
				logger.Error("Error sending response", "error", err)
			}
		}
	}
}
