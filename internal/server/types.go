// Package server defines shared response types and utility helpers that are
// reused across client, hub and handler logic.
package server

import "strings"

// Stats reports live activity. ActiveConnections counts every open socket,
// including ones that never announced and ones orphaned by a newer
// registration; OnlineUsers counts registered identities.
type Stats struct {
	ActiveConnections int `json:"activeConnections"`
	OnlineUsers       int `json:"onlineUsers"`
}

// PresenceStatus is the body returned by the presence lookup endpoint.
type PresenceStatus struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
