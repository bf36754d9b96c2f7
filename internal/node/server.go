package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/config"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node/api"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node/middleware"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/version"
)

const requestTimeout = 60 * time.Second

type Server struct {
	ledger   *ledger.Service
	registry identity.Registry
	config   *config.NodeEnvironment
	logger   *slog.Logger
	router   *chi.Mux
}

func NewServer(
	svc *ledger.Service,
	registry identity.Registry,
	cfg *config.NodeEnvironment,
	logger *slog.Logger,
) *Server {
	server := &Server{
		ledger:   svc,
		registry: registry,
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server
}

// Handler returns the router serving the node API
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(requestTimeout))
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health/live", HandleHealth)
	s.router.Get("/health/ready", HandleReadiness(s.ledger))
	s.router.Get("/version", HandleVersion(version.Get(), "tangle-node"))

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequestSizeLimit(s.config.MaxRequestBytes))

		r.Route(api.ChannelsPath, func(r chi.Router) {
			r.Post("/", s.handleCreateChannel)
			r.Post("/{channelAddress}/subscriptions", s.handleSubscribe)
			r.Post("/{channelAddress}/messages", s.handlePublish)
			r.Get("/{channelAddress}/messages", s.handleListMessages)
			r.Get("/{channelAddress}/messages/{messageId}", s.handleGetMessage)
		})

		r.Route(identity.IdentitiesPath, func(r chi.Router) {
			r.Put("/{did}", s.handlePutIdentity)
			r.Get("/{did}", s.handleGetIdentity)
			r.Get("/{did}/jwks.json", s.handleGetIdentityKeys)
		})
	})
}

// Start serves the API until ctx is cancelled, then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}
