// Command seed creates the chat rooms in the configured store. Rooms that
// already exist keep their occupancy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/adapters/store"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/domain"
)

func main() {
	roomsFlag := flag.String("rooms", "", "comma separated room names, defaults to the configured rooms")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Store.Driver == "" || cfg.Store.Driver == "memory" {
		log.Fatal().Msg("memory store is seeded at startup, nothing to do")
	}

	names := cfg.RoomNames()
	if *roomsFlag != "" {
		names = names[:0]
		for _, n := range strings.Split(*roomsFlag, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, domain.RoomName(n))
			}
		}
	}

	if err := run(cfg, names); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("seed failed")
	}
}

func run(cfg *config.Config, names []domain.RoomName) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.Store, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(ctx)

	created, err := st.SeedRooms(ctx, names)
	if err != nil {
		return err
	}
	log.Info().Int("created", created).Int("requested", len(names)).Str("driver", cfg.Store.Driver).Msg("rooms seeded")
	return nil
}
