// Package store selects a storage driver from config.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/chatrelay/internal/adapters/store/memory"
	"github.com/dkeye/chatrelay/internal/adapters/store/mongo"
	"github.com/dkeye/chatrelay/internal/adapters/store/postgres"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// Open returns the driver named by cfg.Driver. The memory driver is seeded
// with seed so a dev server has rooms without running cmd/seed.
func Open(ctx context.Context, cfg config.StoreConfig, seed []domain.RoomName) (core.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		s := memory.New()
		if _, err := s.SeedRooms(ctx, seed); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		return postgres.Open(ctx, cfg.DSN)
	case "mongo":
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
