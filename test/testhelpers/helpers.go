// Package testhelpers provides shared utilities for the relay's integration
// tests: a relay wired to an httptest server, WebSocket dialing, and an event
// reader that understands the relay's newline-batched JSON frames.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/presence-relay/internal/server"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// TestOrigin is allowed by the default configuration.
const TestOrigin = "http://localhost:8080"

// Relay is a running hub behind an httptest server.
type Relay struct {
	Hub    *server.Hub
	Server *httptest.Server
	WSURL  string
}

// StartRelay starts a hub and HTTP server. customize may adjust the default
// configuration before the hub is built. Both are stopped when the test ends.
func StartRelay(t *testing.T, customize func(cfg *server.Config)) *Relay {
	t.Helper()

	cfg := server.NewConfig()
	if customize != nil {
		customize(&cfg)
	}

	registry := prometheus.NewRegistry()
	hub := server.NewHub(cfg, logs.GetLoggerFromLevel(slog.LevelDebug), server.NewMetrics(registry))
	go hub.Run()

	testServer := httptest.NewServer(server.SetupRoutes(hub, registry))
	t.Cleanup(func() {
		_ = hub.Shutdown(2 * time.Second)
		testServer.Close()
	})

	return &Relay{
		Hub:    hub,
		Server: testServer,
		WSURL:  "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws",
	}
}

// MakeRequest executes an HTTP request with a 5 second timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket dials url with the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Frame is one decoded relay event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Peer is a connected test client that keeps frames it has read but not yet
// consumed.
type Peer struct {
	Conn      *websocket.Conn
	SessionID string
	pending   []Frame
}

// Connect dials the relay and waits for the session event.
func Connect(t *testing.T, relay *Relay) *Peer {
	t.Helper()

	conn, _, err := ConnectWebSocket(relay.WSURL, TestOrigin)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	peer := &Peer{Conn: conn}
	var session server.SessionInfo
	peer.Expect(t, server.EventSession, &session)
	peer.SessionID = session.UserID
	return peer
}

// Send writes one event.
func (p *Peer) Send(t *testing.T, event string, data any) {
	t.Helper()

	if err := p.Conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("Failed to send %s: %v", event, err)
	}
}

// Expect reads until an event named event arrives and decodes its data into
// out. Frames with other names are discarded.
func (p *Peer) Expect(t *testing.T, event string, out any) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		frame, err := p.next(deadline)
		if err != nil {
			t.Fatalf("Waiting for %s: %v", event, err)
		}
		if frame.Event != event {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(frame.Data, out); err != nil {
				t.Fatalf("Decoding %s: %v", event, err)
			}
		}
		return
	}
}

// ExpectNone fails if an event named event arrives within timeout.
func (p *Peer) ExpectNone(t *testing.T, event string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		frame, err := p.next(deadline)
		if err != nil {
			return
		}
		if frame.Event == event {
			t.Fatalf("Unexpected %s: %s", event, frame.Data)
		}
	}
}

func (p *Peer) next(deadline time.Time) (Frame, error) {
	if len(p.pending) == 0 {
		if err := p.Conn.SetReadDeadline(deadline); err != nil {
			return Frame{}, err
		}
		_, message, err := p.Conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		for _, line := range bytes.Split(message, []byte{'\n'}) {
			var frame Frame
			if err := json.Unmarshal(line, &frame); err != nil {
				return Frame{}, fmt.Errorf("invalid frame %q: %w", line, err)
			}
			p.pending = append(p.pending, frame)
		}
	}

	frame := p.pending[0]
	p.pending = p.pending[1:]
	return frame, nil
}
