package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Server owns the HTTP listener lifecycle.
type Server struct {
	srv             *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// NewServer builds the server around an already-configured router.
func NewServer(cfg config.ServerConfig, router *gin.Engine, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start serves until the listener fails or Stop is called. A clean shutdown
// returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server failed")
	}
	return nil
}

// Stop drains in-flight requests, bounded by the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server shutdown failed")
	}
	return nil
}
