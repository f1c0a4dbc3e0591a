// Package presence implements the real-time presence and message-relay core.
//
// A single Registry instance maps user identities to live connection handles
// in both directions. The Broadcaster, Router, TypingRelay and Reconciler are
// stateless over that registry, and the Dispatcher wires them to the events a
// transport Socket produces. Nothing in this package performs network or
// storage I/O beyond calling Conn.Send, which implementations must keep
// non-blocking.
package presence
