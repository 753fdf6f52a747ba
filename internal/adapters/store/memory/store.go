// Package memory is an in-process store driver. It backs tests and the
// default dev config; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/chatrelay/internal/domain"
)

type Store struct {
	// Now is the clock used for the day boundary.
	Now func() time.Time

	mu       sync.RWMutex
	seq      uint64
	messages map[domain.RoomName][]domain.Message
	rooms    map[domain.RoomName]int
}

func New() *Store {
	return &Store{
		Now:      time.Now,
		messages: make(map[domain.RoomName][]domain.Message),
		rooms:    make(map[domain.RoomName]int),
	}
}

func (s *Store) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg.ID = strconv.FormatUint(s.seq, 10)
	if msg.Attachment != nil {
		att := *msg.Attachment
		msg.Attachment = &att
	}
	s.messages[msg.Room] = append(s.messages[msg.Room], msg)
	return msg, nil
}

func (s *Store) QueryToday(ctx context.Context, room domain.RoomName) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	from := domain.StartOfDay(s.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, 0)
	for _, m := range s.messages[room] {
		if !m.Timestamp.Before(from) {
			out = append(out, m)
		}
	}
	// stable: ties keep insertion order
	slices.SortStableFunc(out, func(a, b domain.Message) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for name, n := range s.rooms {
		out = append(out, domain.Room{Name: name, Occupancy: n})
	}
	slices.SortFunc(out, func(a, b domain.Room) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) IncrementOccupancy(ctx context.Context, room domain.RoomName, delta int) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return nil
	}
	s.rooms[room] += delta
	return nil
}

func (s *Store) SetOccupancy(ctx context.Context, room domain.RoomName, n int) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return nil
	}
	s.rooms[room] = n
	return nil
}

func (s *Store) SeedRooms(ctx context.Context, names []domain.RoomName) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for _, name := range names {
		if _, ok := s.rooms[name]; ok {
			continue
		}
		s.rooms[name] = 0
		created++
	}
	return created, nil
}

func (s *Store) Close(context.Context) error { return nil }

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
