package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apisetup "sbt-engine/internal/api"
	"sbt-engine/internal/bootstrap"
	"sbt-engine/internal/config"
	"sbt-engine/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	s.router = gin.New()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept", "Stripe-Signature"}
	corsConfig.AllowOrigins = []string{s.config.Server.WebAppURI}

	// Allow localhost in non-production
	if os.Getenv("GO_ENV") != "production" {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	// Apply middleware
	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	// Register routes
	rootRouter := s.router.Group("/")
	api := apisetup.New(
		rootRouter,
		s.deps.AuthHandler,
		s.deps.TemplatesHandler,
		s.deps.IssuanceHandler,
		s.deps.PaymentsHandler,
		s.deps.TransferHandler,
		s.deps.NetworkHandler,
		s.deps.Store,
	)
	api.RegisterRoutes()
}

// Start begins listening for HTTP requests and starts the mint workers
func (s *Server) Start(ctx context.Context) error {
	if err := s.deps.MintPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mint pool: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.Port),
		Handler: s.router,
	}

	// Run the server in a goroutine so that it doesn't block
	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	s.logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Stop accepting requests first, then drain in-flight mint jobs so
	// every attempt lands a terminal or pending row before the ledger closes.
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "server forced to shutdown", err)
	}
	if err := s.deps.MintPool.Stop(shutdownCtx); err != nil {
		s.logger.Error(ctx, "mint pool did not drain cleanly", err)
	}
	if err := s.deps.Close(); err != nil {
		s.logger.Error(ctx, "failed to close ledger", err)
	}

	s.logger.Info(ctx, "Server exiting")
	return nil
}
