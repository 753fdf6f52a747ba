package app

import (
	"slices"
	"sync"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// RoomManager holds the fixed room set loaded at startup.
// The relay never invents rooms.
type RoomManager interface {
	Get(name domain.RoomName) (core.RoomService, bool)
	Names() []domain.RoomName
	List() []core.RoomInfo
}

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager(names []domain.RoomName) *RoomManagerImpl {
	m := &RoomManagerImpl{rooms: make(map[domain.RoomName]core.RoomService, len(names))}
	for _, name := range names {
		if _, ok := m.rooms[name]; ok {
			continue
		}
		m.rooms[name] = core.NewRoomService(name)
	}
	return m
}

func (f *RoomManagerImpl) Get(name domain.RoomName) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

func (f *RoomManagerImpl) Names() []domain.RoomName {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.RoomName, 0, len(f.rooms))
	for name := range f.rooms {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{Name: name, Occupancy: r.MemberCount()})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}
