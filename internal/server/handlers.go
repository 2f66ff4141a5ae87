package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WebSocketHandler upgrades the request and hands the new client to the hub,
// which starts its pumps.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)

		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			client.closeConnection()
		}
	}
}

// HealthHandler reports that the relay is up and how many sessions it holds.
func HealthHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "Presence relay is running! Sessions: %d", hub.ActiveSessions())
	}
}

// RosterHandler returns the current roster as JSON.
func RosterHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(hub, w, hub.Router().Roster())
	}
}

// PresenceHandler returns the live sessions and unread count of the identity
// in the URL.
func PresenceHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := chi.URLParam(r, "identity")
		writeJSON(hub, w, hub.Router().Presence(identity))
	}
}

func writeJSON(hub *Hub, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hub.log.Warn("Error writing JSON response", "error", err)
	}
}
