package presence

import "sync"

// UnreadCounter maps an identity to its pending-message count. Entries outlive
// the sessions that created them.
type UnreadCounter struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewUnreadCounter() *UnreadCounter {
	return &UnreadCounter{counts: make(map[string]int)}
}

func (u *UnreadCounter) Increment(identity string) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.counts[identity]++
	return u.counts[identity]
}

// Reset sets the count to zero, creating the entry if needed.
func (u *UnreadCounter) Reset(identity string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.counts[identity] = 0
}

func (u *UnreadCounter) Get(identity string) int {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return u.counts[identity]
}
