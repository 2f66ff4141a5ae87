package presence

import (
	"log/slog"
	"sync"

	"github.com/mama165/sdk-go/logs"
)

type delivery struct {
	to    string
	event Outbound
}

// recordingTransport behaves like the hub: group sends only reach sessions
// that joined the group and have not been dropped.
type recordingTransport struct {
	mu         sync.Mutex
	deliveries []delivery
	groups     map[string]map[string]struct{}
	dropped    map[string]struct{}
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		groups:  make(map[string]map[string]struct{}),
		dropped: make(map[string]struct{}),
	}
}

func (t *recordingTransport) Send(sessionID string, event Outbound) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, gone := t.dropped[sessionID]; gone {
		return
	}
	t.deliveries = append(t.deliveries, delivery{to: sessionID, event: event})
}

func (t *recordingTransport) SendToGroup(group string, event Outbound) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.groups[group] {
		if _, gone := t.dropped[id]; gone {
			continue
		}
		t.deliveries = append(t.deliveries, delivery{to: id, event: event})
	}
}

func (t *recordingTransport) JoinGroup(sessionID, group string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.groups[group] == nil {
		t.groups[group] = make(map[string]struct{})
	}
	t.groups[group][sessionID] = struct{}{}
}

func (t *recordingTransport) drop(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dropped[sessionID] = struct{}{}
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deliveries = nil
}

// received returns the payloads of every event named name delivered to id.
func (t *recordingTransport) received(id, name string) []any {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []any
	for _, d := range t.deliveries {
		if d.to == id && d.event.Event == name {
			out = append(out, d.event.Data)
		}
	}
	return out
}

func (t *recordingTransport) count(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, d := range t.deliveries {
		if d.event.Event == name {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}
