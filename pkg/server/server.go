// Package server exposes the investigation gateway over REST. Handlers are
// thin: validation and query building live in the services, the server only
// decodes requests, applies rate limits and shapes errors.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/config"
	"github.com/bascanada/loggate/pkg/log/impl/periscope"
	"github.com/bascanada/loggate/pkg/ratelimit"
	"github.com/bascanada/loggate/pkg/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Limiters groups the per-category token buckets.
type Limiters struct {
	Search *ratelimit.Limiter
	Auth   *ratelimit.Limiter
	Config *ratelimit.Limiter
}

// Services groups the investigation services the handlers dispatch to.
type Services struct {
	Logs      *service.LogService
	Session   *service.SessionService
	Index     *service.IndexService
	Memory    *service.MemoryService
	Correlate *service.CorrelationService
	Periscope *periscope.Client
}

// Server is the REST server instance.
type Server struct {
	router     *http.ServeMux
	httpServer *http.Server
	logger     *zap.Logger
	host       string
	port       int

	services  Services
	tokens    *auth.Store
	overrides *config.Overrides
	limiters  Limiters
}

func NewServer(host string, port int, services Services, tokens *auth.Store, overrides *config.Overrides, limiters Limiters, logger *zap.Logger) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		logger:    logger.Named("server"),
		host:      host,
		port:      port,
		services:  services,
		tokens:    tokens,
		overrides: overrides,
		limiters:  limiters,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /api/health", s.healthHandler)

	s.router.HandleFunc("POST /api/set_auth_token", s.limited(s.limiters.Auth, s.setAuthTokenHandler(auth.ContextKibana)))
	s.router.HandleFunc("POST /api/set_periscope_auth_token", s.limited(s.limiters.Auth, s.setAuthTokenHandler(auth.ContextPeriscope)))
	s.router.HandleFunc("POST /api/set_config", s.limited(s.limiters.Config, s.setConfigHandler))

	s.router.HandleFunc("POST /api/search_logs", s.limited(s.limiters.Search, s.searchLogsHandler))
	s.router.HandleFunc("POST /api/get_recent_logs", s.limited(s.limiters.Search, s.recentLogsHandler))
	s.router.HandleFunc("POST /api/analyze_logs", s.limited(s.limiters.Search, s.analyzeLogsHandler))
	s.router.HandleFunc("POST /api/extract_errors", s.limited(s.limiters.Search, s.extractErrorsHandler))
	s.router.HandleFunc("POST /api/extract_session_id", s.limited(s.limiters.Search, s.extractSessionIDHandler))
	s.router.HandleFunc("POST /api/correlate_with_code", s.limited(s.limiters.Search, s.correlateHandler))

	s.router.HandleFunc("GET /api/discover_indexes", s.limited(s.limiters.Search, s.discoverIndexesHandler))
	s.router.HandleFunc("POST /api/set_current_index", s.limited(s.limiters.Config, s.setCurrentIndexHandler))

	s.router.HandleFunc("POST /api/search_periscope_logs", s.limited(s.limiters.Search, s.periscopeSearchHandler))
	s.router.HandleFunc("POST /api/search_periscope_errors", s.limited(s.limiters.Search, s.periscopeErrorsHandler))
	s.router.HandleFunc("GET /api/get_periscope_streams", s.limited(s.limiters.Search, s.periscopeStreamsHandler))
	s.router.HandleFunc("POST /api/get_periscope_stream_schema", s.limited(s.limiters.Search, s.periscopeSchemaHandler))
	s.router.HandleFunc("GET /api/get_all_periscope_schemas", s.limited(s.limiters.Search, s.periscopeAllSchemasHandler))

	s.router.HandleFunc("GET /api/memory/all", s.memoryListHandler)
	s.router.HandleFunc("POST /api/memory/create", s.memoryCreateHandler)
	s.router.HandleFunc("GET /api/memory/{boardId}", s.memoryGetHandler)
	s.router.HandleFunc("POST /api/memory/{boardId}/add_finding", s.memoryAddFindingHandler)
	s.router.HandleFunc("POST /api/memory/{boardId}/clear", s.memoryClearHandler)
}

// Handler returns the full middleware chain, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.chainMiddleware(s.router, s.recoveryMiddleware, s.corsMiddleware, s.requestIDMiddleware, s.loggingMiddleware)
}

// Start runs the HTTP server and blocks until a signal is received.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	// Create listener first to get the actual assigned port (important when port=0)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorStop := make(chan struct{})
	go s.janitor(janitorStop)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", listener.Addr().String()))
		serverErrors <- s.httpServer.Serve(listener)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		close(janitorStop)
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		close(janitorStop)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("graceful shutdown failed", zap.Error(err))
			return s.httpServer.Close()
		}
		s.logger.Info("server shutdown gracefully")
	}

	return nil
}

// janitor expires tokens and idle rate limit buckets every hour.
func (s *Server) janitor(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			expired := s.tokens.CleanupExpired()
			removed := 0
			for _, l := range []*ratelimit.Limiter{s.limiters.Search, s.limiters.Auth, s.limiters.Config} {
				if l != nil {
					removed += l.CleanupOld(24 * time.Hour)
				}
			}
			s.logger.Debug("janitor pass",
				zap.Int("expiredTokens", expired),
				zap.Int("staleBuckets", removed))
		case <-stop:
			return
		}
	}
}
