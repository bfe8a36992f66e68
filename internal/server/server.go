package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"credential-hub/internal/config"
	"credential-hub/internal/log"
	"credential-hub/internal/metrics"
	"credential-hub/pkg/dispatch"
)

// Server is the HTTP transport shell around pkg/dispatch: it exposes
// ServerConfig.MessagesPath for protocol messages, HealthCheckPath for
// liveness/readiness, and MetricsPath for Prometheus scraping.
type Server struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     log.Logger
	cfg        *config.Config
	router     *mux.Router
	httpServer *http.Server
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Registry
	limiter    *rateLimiter
}

// New builds a Server that routes protocol messages through dispatcher and
// reports its own HTTP metrics through metricsRegistry.
func New(ctx context.Context, cfg *config.Config, logger log.Logger, dispatcher *dispatch.Dispatcher, metricsRegistry *metrics.Registry) *Server {
	serverCtx, cancel := context.WithCancel(ctx)
	router := mux.NewRouter()

	s := &Server{
		ctx:        serverCtx,
		cancel:     cancel,
		logger:     logger,
		cfg:        cfg,
		router:     router,
		dispatcher: dispatcher,
		metrics:    metricsRegistry,
		limiter:    newRateLimiter(100, rateLimiterWindow),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	s.registerEndpoints()
	return s
}

func (s *Server) registerEndpoints() {
	s.router.HandleFunc(s.cfg.Server.HealthCheckPath, s.handleHealth).Methods(http.MethodGet)
	s.router.Handle(s.cfg.Server.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)

	messages := s.router.NewRoute().Subrouter()
	messages.Use(s.recoveryMiddleware, s.loggingMiddleware, s.rateLimitMiddleware)
	messages.HandleFunc(s.cfg.Server.MessagesPath, s.handleMessage).Methods(http.MethodPost)
}

// Start runs the HTTP server until the parent context is cancelled or the
// process receives SIGINT/SIGTERM, then shuts it down within
// ServerConfig.ShutdownTimeout.
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.WithFields(map[string]interface{}{
			"address": s.httpServer.Addr,
			"tls":     s.cfg.Server.TLSEnabled,
		}).Info("starting HTTP server")

		var err error
		if s.cfg.Server.TLSEnabled {
			err = s.httpServer.ListenAndServeTLS(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-s.ctx.Done():
		s.logger.Info("server context cancelled")
	case sig := <-sigChan:
		s.logger.WithFields(map[string]interface{}{"signal": sig.String()}).Info("received signal")
		s.cancel()
	case err := <-serveErr:
		s.logger.Error("HTTP server error", err)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", err)
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
