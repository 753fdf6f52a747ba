package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

type sessionEntry struct {
	RoomName domain.RoomName
	Session  core.MemberSession
	Cancel   context.CancelFunc
}

// Registry is the authoritative live membership: which connection sits in
// which room. Membership mutations run under mu and then the room's own
// lock, so changes to one room are linearized. Occupancy reads only take
// the room's read lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	rooms    RoomManager
}

func NewRegistry(rooms RoomManager) *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		rooms:    rooms,
	}
}

func (r *Registry) Rooms() RoomManager { return r.rooms }

// BindSignal registers an opened connection that has not joined a room yet.
func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// JoinResult describes what a Join changed.
type JoinResult struct {
	Room core.RoomService
	// Added is false when the connection was already a member of Room.
	Added bool
	// Left is the room the connection was moved out of, if any.
	Left domain.RoomName
}

// Join puts sid into room under nickname. Re-joining the same room only
// replaces the nickname. Joining another room leaves the current one first.
func (r *Registry) Join(room domain.RoomName, sid core.SessionID, nickname string) (JoinResult, error) {
	target, ok := r.rooms.Get(room)
	if !ok {
		return JoinResult{}, domain.ErrRoomUnknown
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return JoinResult{}, ErrUnknownSession
	}
	entry.Session.Rename(nickname)

	res := JoinResult{Room: target}
	if entry.RoomName != "" && entry.RoomName != room {
		if prev, ok := r.rooms.Get(entry.RoomName); ok {
			prev.RemoveMember(sid)
		}
		res.Left = entry.RoomName
	}
	res.Added = target.AddMember(sid, entry.Session)
	entry.RoomName = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Bool("added", res.Added).Msg("joined room")
	return res, nil
}

// Leave removes sid from whatever room it is in. It is a no-op for a
// connection that is in no room.
func (r *Registry) Leave(sid core.SessionID) (domain.RoomName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(sid)
}

func (r *Registry) leaveLocked(sid core.SessionID) (domain.RoomName, bool) {
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomName == "" {
		return "", false
	}
	name := entry.RoomName
	if room, ok := r.rooms.Get(name); ok {
		room.RemoveMember(sid)
	}
	entry.RoomName = ""
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(name)).Msg("left room")
	return name, true
}

// Unbind forgets the connection entirely, leaving its room first.
func (r *Registry) Unbind(sid core.SessionID) (domain.RoomName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, left := r.leaveLocked(sid)
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return name, left
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomName, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomName == "" {
		return "", nil, false
	}
	return entry.RoomName, entry.Session, true
}

// Occupancy is the live member count; unknown rooms count as empty.
func (r *Registry) Occupancy(room domain.RoomName) int {
	rs, ok := r.rooms.Get(room)
	if !ok {
		return 0
	}
	return rs.MemberCount()
}

func (r *Registry) MembersOf(room domain.RoomName) []core.SessionID {
	rs, ok := r.rooms.Get(room)
	if !ok {
		return nil
	}
	snap := rs.MembersSnapshot()
	out := make([]core.SessionID, 0, len(snap))
	for _, m := range snap {
		out = append(out, m.SID)
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

func (r *Registry) RoomNames() []domain.RoomName { return r.rooms.Names() }
