package runtime

import (
	"github.com/google/uuid"

	"support-chat/contract"
)

// Registry indexes live connections by connection id, by participant
// and by admin role. It is owned by the hub goroutine and must only
// be touched from there, which is why it carries no lock.
type Registry struct {
	byConn        map[uuid.UUID]contract.Conn
	byParticipant map[string]map[uuid.UUID]contract.Conn
	admins        map[uuid.UUID]contract.Conn
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:        make(map[uuid.UUID]contract.Conn),
		byParticipant: make(map[string]map[uuid.UUID]contract.Conn),
		admins:        make(map[uuid.UUID]contract.Conn),
	}
}

func (r *Registry) Add(conn contract.Conn) {
	p := conn.Participant()
	r.byConn[conn.ID()] = conn
	if r.byParticipant[p.ID] == nil {
		r.byParticipant[p.ID] = make(map[uuid.UUID]contract.Conn)
	}
	r.byParticipant[p.ID][conn.ID()] = conn
	if p.IsAdmin() {
		r.admins[conn.ID()] = conn
	}
}

// Remove detaches a connection and returns it, so the caller can read
// its participant one last time. The second return reports whether the
// id was registered at all; duplicate deregisters are harmless.
func (r *Registry) Remove(connectionID uuid.UUID) (contract.Conn, bool) {
	conn, ok := r.byConn[connectionID]
	if !ok {
		return nil, false
	}
	delete(r.byConn, connectionID)
	delete(r.admins, connectionID)

	p := conn.Participant()
	if conns := r.byParticipant[p.ID]; conns != nil {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(r.byParticipant, p.ID)
		}
	}
	return conn, true
}

// ConnsFor returns every live connection of a participant. Multiple
// simultaneous connections per participant id are expected (several
// admin tabs, a customer on two devices).
func (r *Registry) ConnsFor(participantID string) []contract.Conn {
	conns := r.byParticipant[participantID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]contract.Conn, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn)
	}
	return out
}

func (r *Registry) AdminConns() []contract.Conn {
	if len(r.admins) == 0 {
		return nil
	}
	out := make([]contract.Conn, 0, len(r.admins))
	for _, conn := range r.admins {
		out = append(out, conn)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.byConn)
}
