package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
)

// Server wraps the HTTP server with graceful shutdown handling.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	opts   *HTTPOptions
}

// NewServer creates an HTTP server around a gin engine.
func NewServer(opts *HTTPOptions) *Server {
	gin.SetMode(opts.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), AccessLog())

	return &Server{
		engine: engine,
		opts:   opts,
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
	}
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
