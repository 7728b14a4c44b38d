package runtime

import (
	"sort"

	"support-chat/domain"
)

// PresenceTracker refcounts customer connections. A customer is online
// iff it holds at least one connection; entries never linger at zero.
// Admins are not tracked here, only as connections in the registry.
// Owned by the hub goroutine, no lock.
type PresenceTracker struct {
	byCustomer map[string]*presenceEntry
}

type presenceEntry struct {
	displayName string
	connections int
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{byCustomer: make(map[string]*presenceEntry)}
}

// Connect counts one more connection for the customer and reports
// whether this was the first one, i.e. the customer just came online.
func (t *PresenceTracker) Connect(p domain.Participant) bool {
	entry, ok := t.byCustomer[p.ID]
	if !ok {
		t.byCustomer[p.ID] = &presenceEntry{displayName: p.DisplayName, connections: 1}
		return true
	}
	entry.connections++
	return false
}

// Disconnect counts one connection down and reports whether the
// customer just went fully offline. Disconnects for unknown customers
// are ignored.
func (t *PresenceTracker) Disconnect(p domain.Participant) bool {
	entry, ok := t.byCustomer[p.ID]
	if !ok {
		return false
	}
	entry.connections--
	if entry.connections <= 0 {
		delete(t.byCustomer, p.ID)
		return true
	}
	return false
}

// Snapshot lists every online customer, sorted by id for stable
// output. Sent to admin connections when they join mid-session.
func (t *PresenceTracker) Snapshot() []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, 0, len(t.byCustomer))
	for id, entry := range t.byCustomer {
		out = append(out, domain.PresenceEntry{
			ParticipantID: id,
			DisplayName:   entry.displayName,
			Connections:   entry.connections,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

func (t *PresenceTracker) OnlineCount() int {
	return len(t.byCustomer)
}
