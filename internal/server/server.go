package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/cascade/internal/common"
	"github.com/ternarybob/cascade/internal/handlers"
)

// Server serves the progress WebSocket while a cascade runs
type Server struct {
	logger   arbor.ILogger
	ws       *handlers.WebSocketHandler
	router   *http.ServeMux
	server   *http.Server
	listener net.Listener
}

// New creates the progress server. It does not listen until Start.
func New(logger arbor.ILogger, config *common.WebSocketConfig, ws *handlers.WebSocketHandler) *Server {
	s := &Server{
		logger: logger,
		ws:     ws,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:     s.withConditionalMiddleware(s.router),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Listen binds the address so the real port is known before serving.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start serves until Shutdown. It calls Listen if needed.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.logger.Info().
		Str("url", fmt.Sprintf("ws://%s/ws", s.Addr())).
		Msg("Progress WebSocket available")

	if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server. A listener bound by Listen
// but never served is closed too.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("close listener: %w", err)
		}
	}

	s.logger.Debug().Msg("Progress server stopped")
	return nil
}
