package server

import (
	"strings"

	"github.com/Tyrowin/presence-relay/internal/presence"
)

// EventSession is sent to a client right after it connects and carries the
// session id other clients use to address it.
const EventSession = "session"

// SessionInfo is the payload of EventSession.
type SessionInfo struct {
	UserID string `json:"userID"`
}

// inboundEvent is a decoded client event waiting for the dispatcher.
type inboundEvent struct {
	client *Client
	event  presence.Inbound
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
