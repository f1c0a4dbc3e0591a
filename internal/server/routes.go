// Package server wires HTTP handlers into a ServeMux via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// /metrics is only mounted when a metrics handler was supplied.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/presence", s.PresenceHandler)
	mux.HandleFunc("/stats", s.StatsHandler)
	mux.HandleFunc("/internal/deliver", s.DeliverHandler)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}
