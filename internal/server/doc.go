// Package server hosts the presence relay over WebSocket.
//
// The Hub owns every live connection and is the relay's single dispatcher: it
// serializes connects, disconnects and inbound events into the presence
// Router, and implements presence.Transport for everything the Router emits.
// The rest of the package covers configuration, origin checks, per-connection
// rate limiting, metrics and the HTTP surface.
package server
