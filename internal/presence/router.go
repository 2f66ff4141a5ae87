package presence

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Router is the single entry point for state changes. Each call holds the
// router lock for its whole duration, so handlers never interleave.
type Router struct {
	mu        sync.Mutex
	sessions  *Registry
	unread    *UnreadCounter
	groups    *GroupManager
	presence  *Broadcaster
	transport Transport
	log       *slog.Logger
}

// PresenceInfo describes an identity as seen by the relay right now.
type PresenceInfo struct {
	Identity string   `json:"identity"`
	Sessions []string `json:"sessions"`
	Unread   int      `json:"unread"`
}

func NewRouter(transport Transport, log *slog.Logger) *Router {
	sessions := NewRegistry()
	unread := NewUnreadCounter()
	return &Router{
		sessions:  sessions,
		unread:    unread,
		groups:    NewGroupManager(sessions, transport),
		presence:  NewBroadcaster(sessions, unread, transport),
		transport: transport,
		log:       log,
	}
}

// Connect records a new anonymous session. No roster is broadcast until the
// session registers.
func (r *Router) Connect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions.Add(sessionID)
	r.log.Debug("Session connected", "session", sessionID, "sessions", r.sessions.Len())
}

// Disconnect removes the session and refreshes the roster of everyone left.
// Unread counts and group member sets are kept.
func (r *Router) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions.Remove(sessionID)
	r.presence.BroadcastRoster()
	r.log.Debug("Session disconnected", "session", sessionID, "sessions", r.sessions.Len())
}

// Dispatch runs the handler for one inbound event sent by sessionID.
func (r *Router) Dispatch(sessionID string, event Inbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := event.(type) {
	case Register:
		r.handleRegister(sessionID, e)
	case DirectMessage:
		r.handleDirectMessage(e)
	case ResetCount:
		r.handleResetCount(e)
	case CreateGroup:
		r.handleCreateGroup(e)
	case JoinGroup:
		return r.handleJoinGroup(sessionID, e)
	case GroupMessage:
		return r.handleGroupMessage(e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}
	return nil
}

// Roster returns the current roster.
func (r *Router) Roster() []RosterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.presence.Snapshot()
}

// Presence reports the live sessions and unread count of an identity.
func (r *Router) Presence(identity string) PresenceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	return PresenceInfo{
		Identity: identity,
		Sessions: lo.Map(r.sessions.LookupByIdentity(identity), func(s Session, _ int) string {
			return s.ID
		}),
		Unread: r.unread.Get(identity),
	}
}

// Members returns the member ids recorded for a group.
func (r *Router) Members(group string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.groups.MembersOf(group)
}

func (r *Router) handleRegister(sessionID string, e Register) {
	if !r.sessions.SetIdentity(sessionID, e.Identity) {
		r.log.Debug("Register from unknown session ignored", "session", sessionID)
	}
	r.presence.BroadcastRoster()
}

// handleDirectMessage counts unread messages under the sender's identity and
// pushes that count to the recipient. The count grows even when the recipient
// is offline.
func (r *Router) handleDirectMessage(e DirectMessage) {
	online := r.sessions.Contains(e.To)
	if online {
		r.transport.Send(e.To, Outbound{Event: EventMessageReceived, Data: e})
	}

	count := r.unread.Increment(e.From)
	if !online {
		r.log.Debug("Recipient offline, message dropped", "to", e.To, "from", e.From)
		return
	}
	r.transport.Send(e.To, Outbound{
		Event: EventUnreadCountUpdate,
		Data:  CountUpdate{User: e.From, Count: count},
	})
}

func (r *Router) handleResetCount(e ResetCount) {
	r.unread.Reset(e.Identity)
	r.presence.Announce(Outbound{
		Event: EventResetConfirmed,
		Data:  CountUpdate{User: e.Identity, Count: 0},
	})
}

func (r *Router) handleCreateGroup(e CreateGroup) {
	requested := lo.Map(e.Members, func(m Member, _ int) string { return m.UserID })
	accepted := r.groups.CreateGroup(e.GroupName, requested)
	r.log.Debug("Group created", "group", e.GroupName,
		"requested", len(requested), "accepted", len(accepted))

	r.groups.Broadcast(e.GroupName, Outbound{
		Event: EventGroupCreated,
		Data:  GroupCreated{GroupName: e.GroupName, Members: e.Members},
	})
}

func (r *Router) handleJoinGroup(sessionID string, e JoinGroup) error {
	if !r.groups.Join(e.GroupName, sessionID) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	r.groups.Broadcast(e.GroupName, Outbound{
		Event: EventUserJoined,
		Data:  UserJoined{GroupName: e.GroupName, UserID: sessionID},
	})
	return nil
}

func (r *Router) handleGroupMessage(e GroupMessage) error {
	sender, ok := r.sessions.Get(e.From)
	if !ok || !sender.Registered() {
		return fmt.Errorf("%w: %s", ErrUnknownSender, e.From)
	}
	r.groups.Broadcast(e.GroupName, Outbound{
		Event: EventGroupMessageReceived,
		Data: GroupMessageReceived{
			GroupName: e.GroupName,
			From:      e.From,
			Content:   e.Message,
			Username:  sender.Identity,
			Date:      e.Date,
			Time:      e.Time,
		},
	})
	return nil
}
