package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSignal struct{}

func (nopSignal) TrySend(core.Frame) error { return nil }
func (nopSignal) Close()                   {}

func newTestRegistry(names ...domain.RoomName) *Registry {
	return NewRegistry(NewRoomManager(names))
}

func bind(r *Registry, sid core.SessionID) {
	r.BindSignal(sid, core.NewMemberSession(domain.Member{}, nopSignal{}), nil)
}

func TestRegistryJoinUnknownRoom(t *testing.T) {
	r := newTestRegistry("종로구")
	bind(r, "a")
	_, err := r.Join("nowhere", "a", "alice")
	require.ErrorIs(t, err, domain.ErrRoomUnknown)
	assert.Equal(t, 0, r.Occupancy("nowhere"))
}

func TestRegistryJoinUnboundSession(t *testing.T) {
	r := newTestRegistry("종로구")
	_, err := r.Join("종로구", "ghost", "alice")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistryRejoinReplacesNickname(t *testing.T) {
	r := newTestRegistry("종로구")
	bind(r, "a")

	res, err := r.Join("종로구", "a", "alice")
	require.NoError(t, err)
	assert.True(t, res.Added)

	res, err = r.Join("종로구", "a", "alicia")
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, 1, r.Occupancy("종로구"))

	_, sess, ok := r.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, "alicia", sess.Meta().Nickname)
}

func TestRegistryJoinOtherRoomMoves(t *testing.T) {
	r := newTestRegistry("종로구", "중구")
	bind(r, "a")
	_, err := r.Join("종로구", "a", "alice")
	require.NoError(t, err)

	res, err := r.Join("중구", "a", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("종로구"), res.Left)
	assert.Equal(t, 0, r.Occupancy("종로구"))
	assert.Equal(t, 1, r.Occupancy("중구"))
}

func TestRegistryLeave(t *testing.T) {
	r := newTestRegistry("종로구")
	bind(r, "a")
	bind(r, "b")
	_, _ = r.Join("종로구", "a", "alice")
	_, _ = r.Join("종로구", "b", "bob")

	room, ok := r.Leave("a")
	assert.True(t, ok)
	assert.Equal(t, domain.RoomName("종로구"), room)
	assert.Equal(t, []core.SessionID{"b"}, r.MembersOf("종로구"))

	_, ok = r.Leave("a")
	assert.False(t, ok, "leave without membership is a no-op")

	_, ok = r.Unbind("b")
	assert.True(t, ok)
	assert.Equal(t, 0, r.Occupancy("종로구"))
	_, found := r.GetSession("b")
	assert.False(t, found)
}

func TestRegistryOccupancyMatchesOpenJoins(t *testing.T) {
	r := newTestRegistry("종로구", "중구")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		sid := core.SessionID(fmt.Sprintf("s%d", i))
		bind(r, sid)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := domain.RoomName("종로구")
			if i%2 == 0 {
				room = "중구"
			}
			_, _ = r.Join(room, sid, "n")
			if i%5 == 0 {
				r.Unbind(sid)
			}
		}(i)
	}
	wg.Wait()
	// 50 per room, 10 of each unbound.
	assert.Equal(t, 40, r.Occupancy("종로구"))
	assert.Equal(t, 40, r.Occupancy("중구"))
}

func TestRoomManagerListSorted(t *testing.T) {
	m := NewRoomManager([]domain.RoomName{"중구", "강남구", "종로구", "강남구"})
	names := m.Names()
	assert.Equal(t, []domain.RoomName{"강남구", "종로구", "중구"}, names)
	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, domain.RoomName("강남구"), list[0].Name)
}
