package core

import (
	"sync"

	"github.com/dkeye/chatrelay/internal/domain"
)

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	mu   sync.RWMutex
	meta domain.Member
	sig  SignalConnection
}

func NewMemberSession(meta domain.Member, sig SignalConnection) MemberSession {
	return &memberSession{meta: meta, sig: sig}
}

func (m *memberSession) Meta() *domain.Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta := m.meta
	return &meta
}

func (m *memberSession) Signal() SignalConnection { return m.sig }

func (m *memberSession) Rename(nickname string) {
	m.mu.Lock()
	m.meta.Nickname = nickname
	m.mu.Unlock()
}
