// Package server implements the HTTP and WebSocket transport for the presence
// core.
//
// Client adapts a gorilla WebSocket connection to presence.Socket, Hub tracks
// open connections and their pumps, and Server exposes the upgrade endpoint
// next to the health, presence, stats, delivery and metrics handlers.
package server
