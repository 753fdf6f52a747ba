package core

import (
	"context"

	"github.com/dkeye/chatrelay/internal/domain"
)

// HistoryStore is the only interface to durable message storage.
// Callers must treat every call as potentially slow or failing.
type HistoryStore interface {
	// Append records msg and returns the stored copy with its id.
	Append(ctx context.Context, msg domain.Message) (domain.Message, error)
	// QueryToday returns the room's messages stamped at or after local
	// midnight, ascending by timestamp, insertion order on ties.
	QueryToday(ctx context.Context, room domain.RoomName) ([]domain.Message, error)
}

// RoomStore persists the provisioned room set and its occupancy mirror.
type RoomStore interface {
	// ListRooms returns every room sorted by name ascending.
	ListRooms(ctx context.Context) ([]domain.Room, error)
	IncrementOccupancy(ctx context.Context, room domain.RoomName, delta int) error
	SetOccupancy(ctx context.Context, room domain.RoomName, n int) error
	// SeedRooms inserts missing rooms with zero occupancy and reports how
	// many were created.
	SeedRooms(ctx context.Context, names []domain.RoomName) (int, error)
}

// Store is what a storage driver provides.
type Store interface {
	HistoryStore
	RoomStore
	Close(ctx context.Context) error
}
