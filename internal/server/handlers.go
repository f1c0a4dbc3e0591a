// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, presence lookups and the delivery call-in.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Tyrowin/presencechat/internal/presence"
)

const maxDeliverBody = 1 << 20

// WebSocketHandler handles WebSocket upgrade requests and manages client connections.
// It validates that the request uses the GET method, upgrades the HTTP connection
// to WebSocket, attaches the presence dispatcher, and hands the client to the hub.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg, s.logger.Named("client"))
	s.core.Dispatcher.Attach(client)

	// The hub launches the pump goroutines.
	if !s.hub.Register(client) {
		s.logger.Info("Rejecting connection during shutdown", zap.String("remote_addr", r.RemoteAddr))
		client.closeConnection()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Presence server is running!")
}

// PresenceHandler reports whether the identity in the userId query
// parameter currently has a live connection.
func (s *Server) PresenceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, PresenceStatus{
		UserID: userID,
		Online: s.core.Registry.IsOnline(presence.Identity(userID)),
	})
}

// StatsHandler reports live connection and online-user counts.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Stats())
}

// DeliverHandler is the call-in for the persistence layer: after a message
// has been stored, it is posted here and relayed to the receiver if online.
// The response never says whether the receiver was reachable.
func (s *Server) DeliverHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Delivery endpoint only accepts POST requests.", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDeliverBody))
	if err != nil {
		http.Error(w, "Request body too large or unreadable", http.StatusBadRequest)
		return
	}

	if err := s.core.Deliver(json.RawMessage(body)); err != nil {
		if errors.Is(err, presence.ErrMalformedPayload) {
			http.Error(w, "Payload must be a JSON object with a receiver", http.StatusBadRequest)
			return
		}
		s.logger.Error("Delivery failed", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Error writing JSON response", zap.Error(err))
	}
}
