package core

import (
	"sync"

	"github.com/dkeye/confcore/internal/domain"
)

// Room is the transient, in-memory membership set for one meeting (spec §3
// "Room (transient, in memory)"). Never persisted; created on first join,
// deleted when empty, exactly as the teacher's roomImpl does it, generalized
// from a single by-user index to the socket/user split the wire protocol
// needs (one user, several tabs).
type Room struct {
	MeetingID string

	mu      sync.RWMutex
	bySocket map[SocketID]*Member
	byUser   map[domain.UserID]map[SocketID]struct{}
}

func NewRoom(meetingID string) *Room {
	return &Room{
		MeetingID: meetingID,
		bySocket:  make(map[SocketID]*Member),
		byUser:    make(map[domain.UserID]map[SocketID]struct{}),
	}
}

func (r *Room) AddMember(m *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySocket[m.SocketID] = m
	set, ok := r.byUser[m.UserID]
	if !ok {
		set = make(map[SocketID]struct{})
		r.byUser[m.UserID] = set
	}
	set[m.SocketID] = struct{}{}
}

func (r *Room) RemoveMember(sid SocketID) (m *Member, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok = r.bySocket[sid]
	if !ok {
		return nil, false
	}
	delete(r.bySocket, sid)
	if set, ok := r.byUser[m.UserID]; ok {
		delete(set, sid)
		if len(set) == 0 {
			delete(r.byUser, m.UserID)
		}
	}
	return m, true
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySocket)
}

func (r *Room) IsEmpty() bool { return r.MemberCount() == 0 }

// Get returns the member bound to sid, if connected.
func (r *Room) Get(sid SocketID) (*Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bySocket[sid]
	return m, ok
}

// FindByUser returns one of the sockets bound to uid in this room. It looks
// up by user ID only; the signaling router falls back to Get with a literal
// socket ID when this finds nothing (spec §4.F unicast rule).
func (r *Room) FindByUser(uid domain.UserID) (*Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byUser[uid]
	if !ok {
		return nil, false
	}
	for sid := range set {
		return r.bySocket[sid], true
	}
	return nil, false
}

// Snapshot returns every member currently in the room.
func (r *Room) Snapshot() []*Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Member, 0, len(r.bySocket))
	for _, m := range r.bySocket {
		out = append(out, m)
	}
	return out
}

// SnapshotDTO returns the wire-safe view for existing-participants bootstrap.
func (r *Room) SnapshotDTO(except SocketID) []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.bySocket))
	for sid, m := range r.bySocket {
		if sid == except {
			continue
		}
		out = append(out, MemberDTO{SocketID: sid, UserID: m.UserID, Username: m.Username})
	}
	return out
}

// Broadcast sends data to every member except `from`. Best-effort: a failed
// TrySend is dropped and logged by the caller, never retried (spec §5
// at-most-once fan-out).
func (r *Room) Broadcast(from SocketID, data Frame) (sent int, dropped []SocketID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sid, m := range r.bySocket {
		if sid == from {
			continue
		}
		if err := m.Conn.TrySend(data); err != nil {
			dropped = append(dropped, sid)
			continue
		}
		sent++
	}
	return sent, dropped
}

// BroadcastAll sends data to every member including the sender, used for
// chat-message so the sender's own message serves as a durable receipt
// (spec §4.G).
func (r *Room) BroadcastAll(data Frame) (sent int, dropped []SocketID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sid, m := range r.bySocket {
		if err := m.Conn.TrySend(data); err != nil {
			dropped = append(dropped, sid)
			continue
		}
		sent++
	}
	return sent, dropped
}
