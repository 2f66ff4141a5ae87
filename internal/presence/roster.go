package presence

// Broadcaster derives the roster from the registry and the unread counter and
// pushes it to every connected session.
type Broadcaster struct {
	sessions  *Registry
	unread    *UnreadCounter
	transport Transport
}

func NewBroadcaster(sessions *Registry, unread *UnreadCounter, transport Transport) *Broadcaster {
	return &Broadcaster{sessions: sessions, unread: unread, transport: transport}
}

// Snapshot returns one entry per connected session. Order is unspecified.
func (b *Broadcaster) Snapshot() []RosterEntry {
	roster := make([]RosterEntry, 0, b.sessions.Len())
	for s := range b.sessions.All() {
		roster = append(roster, RosterEntry{
			UserID:   s.ID,
			Username: s.Identity,
			Unread:   b.unread.Get(s.Identity),
		})
	}
	return roster
}

func (b *Broadcaster) BroadcastRoster() {
	b.Announce(Outbound{Event: EventUsers, Data: b.Snapshot()})
}

// Announce sends event to every session connected at call time. Delivery is
// independent per session.
func (b *Broadcaster) Announce(event Outbound) {
	for s := range b.sessions.All() {
		b.transport.Send(s.ID, event)
	}
}
