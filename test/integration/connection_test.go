package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/presence-relay/internal/presence"
	"github.com/Tyrowin/presence-relay/internal/server"
	"github.com/Tyrowin/presence-relay/test/testhelpers"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestOriginPolicy(t *testing.T) {
	relay := testhelpers.StartRelay(t, func(cfg *server.Config) {
		cfg.AllowedOrigins = "http://localhost:8080, https://chat.example.com"
	})

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "configured origin", origin: "http://localhost:8080", allowed: true},
		{name: "second configured origin", origin: "https://chat.example.com", allowed: true},
		{name: "origin case is ignored", origin: "HTTPS://Chat.Example.com", allowed: true},
		{name: "unknown origin", origin: "http://evil.example.com", allowed: false},
		{name: "missing origin", origin: "", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			conn, resp, err := testhelpers.ConnectWebSocket(relay.WSURL, tt.origin)
			if tt.allowed {
				req.NoError(err)
				_ = conn.Close()
				return
			}
			req.ErrorIs(err, websocket.ErrBadHandshake)
			req.NotNil(resp)
			req.Equal(http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, func(cfg *server.Config) {
		cfg.MaxMessageSize = 128
	})

	peer := testhelpers.Connect(t, relay)
	peer.Send(t, presence.EventRegister, strings.Repeat("a", 512))

	req.Eventually(func() bool {
		return relay.Hub.ActiveSessions() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRateLimitDiscardsExcessMessages(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, func(cfg *server.Config) {
		cfg.RateLimitBurst = 2
		cfg.RateLimitRefillInterval = time.Hour
	})

	peer := testhelpers.Connect(t, relay)
	for _, identity := range []string{"a", "b", "c", "d"} {
		peer.Send(t, presence.EventRegister, identity)
	}

	req.Eventually(func() bool {
		return len(relay.Hub.Router().Presence("b").Sessions) == 1
	}, 2*time.Second, 20*time.Millisecond)

	req.Empty(relay.Hub.Router().Presence("c").Sessions)
	req.Empty(relay.Hub.Router().Presence("d").Sessions)
	req.Equal(1, relay.Hub.ActiveSessions())
}

func TestShutdownClosesClients(t *testing.T) {
	req := require.New(t)
	relay := testhelpers.StartRelay(t, nil)

	peers := []*testhelpers.Peer{
		testhelpers.Connect(t, relay),
		testhelpers.Connect(t, relay),
	}

	req.NoError(relay.Hub.Shutdown(2 * time.Second))

	for _, peer := range peers {
		req.NoError(peer.Conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
		_, _, err := peer.Conn.ReadMessage()
		req.Error(err)
	}
}
