// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/presencechat/internal/presence"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

var (
	// ErrSendBufferFull is returned by Send when the client is not draining
	// its queue fast enough. The connection is closed shortly after.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnClosed is returned by Send after the client has been torn down.
	ErrConnClosed = errors.New("connection closed")
)

// Client represents a WebSocket client connection. It implements
// presence.Socket so the dispatcher can attach handlers to it.
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	addr   string
	logger *zap.Logger

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	handlers map[string]presence.Handler
	onClose  []func()

	closeOnce      sync.Once
	connCloseOnce  sync.Once
	maxMessageSize int64
	rateLimiter    *rate.Limiter
	rateLimit      string
}

var _ presence.Socket = (*Client)(nil)

// NewClient creates a new Client instance with the provided WebSocket connection,
// hub reference, and client address. The client's send channel is buffered
// to handle message queuing.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg *Config, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		addr:           addr,
		logger:         logger.With(zap.String("conn_id", id), zap.String("remote_addr", addr)),
		send:           make(chan []byte, cfg.SendBufferSize),
		handlers:       make(map[string]presence.Handler),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefillInterval),
		rateLimit:      cfg.RateLimitRefillInterval.String(),
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues payload for the write pump without blocking. A full queue
// marks the client as too slow: the frame is dropped and the connection is
// closed so its owner goes through the normal disconnect path.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.logger.Warn("Send buffer full; closing slow client")
		go c.closeConnection()
		return ErrSendBufferFull
	}
}

// OnMessage registers the handler for an inbound event name. Registering the
// same event twice replaces the earlier handler.
func (c *Client) OnMessage(event string, handler presence.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// OnClose registers a handler run once when the connection goes away.
func (c *Client) OnClose(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, handler)
}

// closeSend stops accepting frames and lets the write pump finish.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) fireClose() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		handlers := append([]func(){}, c.onClose...)
		c.mu.Unlock()

		for _, handler := range handlers {
			handler()
		}
	})
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("Error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn("Error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// logReadError logs the reason the read loop is ending.
func (c *Client) logReadError(err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		c.logger.Warn("Message exceeded maximum size", zap.Int64("max_bytes", c.maxMessageSize))
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.logger.Info("Client disconnected", zap.Error(err))
		return
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.logger.Info("Client connection closed", zap.Error(err))
		return
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.logger.Warn("Unexpected WebSocket error", zap.Error(err))
		return
	}

	c.logger.Warn("WebSocket read error", zap.Error(err))
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		c.logger.Warn("Rate limit exceeded; discarding message",
			zap.Int("burst", c.rateLimiter.Burst()),
			zap.String("interval", c.rateLimit))
		return false
	}
	return true
}

// processMessage decodes an envelope and hands its data to the handler
// registered for the event. Malformed frames and unknown events are dropped.
func (c *Client) processMessage(rawMessage []byte) bool {
	var env presence.Envelope
	if err := json.Unmarshal(rawMessage, &env); err != nil {
		c.logger.Warn("Invalid frame", zap.Error(err))
		return false
	}

	c.mu.Lock()
	handler, ok := c.handlers[env.Event]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("Ignoring unknown event", zap.String("event", env.Event))
		return false
	}

	handler(env.Data)
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.fireClose()
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	c.connCloseOnce.Do(func() {
		if c.conn == nil {
			return
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("Error closing connection", zap.Error(err))
		}
	})
}

// handleMessage writes one outgoing frame and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("Error setting write deadline", zap.Error(err))
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("Error writing message", zap.Error(err))
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("Error writing close message", zap.Error(err))
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("Error setting write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("Error writing ping message", zap.Error(err))
		}
		return false
	}
	return true
}
