package presence

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// GroupManager owns named groups. Membership is mirrored into the transport's
// own routing groups so that Broadcast only reaches live sessions; the member
// sets kept here are never pruned on disconnect.
type GroupManager struct {
	mu        sync.RWMutex
	groups    map[string]map[string]struct{}
	sessions  *Registry
	transport Transport
}

func NewGroupManager(sessions *Registry, transport Transport) *GroupManager {
	return &GroupManager{
		groups:    make(map[string]map[string]struct{}),
		sessions:  sessions,
		transport: transport,
	}
}

// CreateGroup adds every connected member to the group and returns the ids
// that were accepted. Members that are not connected are skipped.
func (g *GroupManager) CreateGroup(name string, memberIDs []string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	members := g.group(name)
	accepted := make([]string, 0, len(memberIDs))
	for _, id := range lo.Uniq(memberIDs) {
		if g.join(members, name, id) {
			accepted = append(accepted, id)
		}
	}
	return accepted
}

// Join adds one session to the group. It is a no-op returning false when the
// session is not connected.
func (g *GroupManager) Join(name, sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.join(g.group(name), name, sessionID)
}

// MembersOf returns the sorted member ids of the group.
func (g *GroupManager) MembersOf(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	members := lo.Keys(g.groups[name])
	slices.Sort(members)
	return members
}

func (g *GroupManager) Broadcast(name string, event Outbound) {
	g.transport.SendToGroup(name, event)
}

func (g *GroupManager) group(name string) map[string]struct{} {
	members, ok := g.groups[name]
	if !ok {
		members = make(map[string]struct{})
		g.groups[name] = members
	}
	return members
}

func (g *GroupManager) join(members map[string]struct{}, name, sessionID string) bool {
	if !g.sessions.addGroup(sessionID, name) {
		return false
	}
	members[sessionID] = struct{}{}
	g.transport.JoinGroup(sessionID, name)
	return true
}
