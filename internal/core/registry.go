package core

import (
	"sync"

	"github.com/dkeye/confcore/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManager owns the lifetime of every in-memory Room, sharded by
// meetingID, generalizing the teacher's app.RoomManagerImpl.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

func (rm *RoomManager) GetOrCreate(meetingID string) *Room {
	rm.mu.RLock()
	r, ok := rm.rooms[meetingID]
	rm.mu.RUnlock()
	if ok {
		return r
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r, ok = rm.rooms[meetingID]; ok {
		return r
	}
	r = NewRoom(meetingID)
	rm.rooms[meetingID] = r
	return r
}

func (rm *RoomManager) Get(meetingID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.rooms[meetingID]
	return r, ok
}

// DropIfEmpty removes the room if it has no members, called after every
// leave/disconnect so idle rooms never linger.
func (rm *RoomManager) DropIfEmpty(meetingID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r, ok := rm.rooms[meetingID]; ok && r.IsEmpty() {
		delete(rm.rooms, meetingID)
	}
}

// Registry binds a live SocketID to the session metadata the signaling
// router and room event bus both need: which meeting it's in, its user
// identity, and the connection to send through. Generalizes the teacher's
// app.Registry (which additionally tracked a media connection we do not
// have, since this server never touches media).
type Registry struct {
	mu       sync.RWMutex
	sessions map[SocketID]*sessionEntry
}

type sessionEntry struct {
	UserID    domain.UserID
	Username  string
	MeetingID string
	Conn      SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SocketID]*sessionEntry)}
}

func (r *Registry) Bind(sid SocketID, uid domain.UserID, username string, conn SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{UserID: uid, Username: username, Conn: conn}
	log.Info().Str("module", "core.registry").Str("sid", string(sid)).Str("user", string(uid)).Msg("session bound")
}

func (r *Registry) Unbind(sid SocketID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
}

func (r *Registry) Get(sid SocketID) (uid domain.UserID, username, meetingID string, conn SignalConnection, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", "", "", nil, false
	}
	return e.UserID, e.Username, e.MeetingID, e.Conn, true
}

func (r *Registry) MeetingOf(sid SocketID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.MeetingID == "" {
		return "", false
	}
	return e.MeetingID, true
}

func (r *Registry) SetMeeting(sid SocketID, meetingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.MeetingID = meetingID
	}
}

func (r *Registry) ClearMeeting(sid SocketID) {
	r.SetMeeting(sid, "")
}
