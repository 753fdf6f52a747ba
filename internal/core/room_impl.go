package core

import (
	"errors"
	"sync"

	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrNotMember = errors.New("not a member")

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	name  domain.RoomName
	mu    sync.RWMutex
	bySID map[SessionID]MemberSession
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:  name,
		bySID: make(map[SessionID]MemberSession),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) Has(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.bySID[sid]
	r.bySID[sid] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Bool("rejoin", existed).Msg("member added")
	return !existed
}

func (r *roomImpl) RemoveMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return false
	}
	delete(r.bySID, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Msg("member removed")
	return true
}

func (r *roomImpl) Broadcast(data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) SendTo(sid SessionID, data Frame) error {
	r.mu.RLock()
	m, ok := r.bySID[sid]
	r.mu.RUnlock()
	if !ok {
		return ErrNotMember
	}
	return m.Signal().TrySend(data)
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, ms := range r.bySID {
		out = append(out, MemberDTO{SID: sid, Nickname: ms.Meta().Nickname})
	}
	return out
}
