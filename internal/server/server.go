// Package server assembles the presence core, the connection hub and the
// HTTP handlers into a Server.
package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/presencechat/internal/presence"
)

// Server owns one presence core and one hub. It holds no package-level
// state, so tests can run several side by side.
type Server struct {
	cfg      *Config
	core     *presence.Core
	hub      *Hub
	logger   *zap.Logger
	origins  originPolicy
	upgrader websocket.Upgrader
	metrics  http.Handler
}

// Option customises a Server.
type Option func(*Server)

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server. A nil cfg uses defaults and a nil core gets a fresh
// one.
func New(cfg *Config, core *presence.Core, logger *zap.Logger, opts ...Option) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	sanitized := sanitizeConfig(*cfg)
	if logger == nil {
		logger = zap.NewNop()
	}
	if core == nil {
		core = presence.New(logger.Named("presence"))
	}

	s := &Server{
		cfg:     &sanitized,
		core:    core,
		hub:     NewHub(logger.Named("hub")),
		logger:  logger,
		origins: newOriginPolicy(sanitized.AllowedOrigins, logger.Named("origin")),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub returns the connection hub for lifecycle coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Core returns the presence core the server relays through.
func (s *Server) Core() *presence.Core {
	return s.core
}

// Config returns the sanitized configuration in effect.
func (s *Server) Config() Config {
	return *s.cfg
}

// Stats reports open connections and online identities.
func (s *Server) Stats() Stats {
	return Stats{
		ActiveConnections: s.hub.Count(),
		OnlineUsers:       s.core.Registry.Len(),
	}
}
