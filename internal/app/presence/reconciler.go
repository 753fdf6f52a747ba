// Package presence mirrors live room occupancy into the room store.
//
// Joins write an optimistic +1; every disconnect, leave and interval tick
// overwrites each room's persisted count with the live one, so any drift
// heals on the next pass. A pass that races with a join can read the count
// just before the join lands and persist one member too few for that room.
// That stays until the next pass and is accepted.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/telemetry"
)

// LiveView is the registry side of reconciliation.
type LiveView interface {
	RoomNames() []domain.RoomName
	Occupancy(room domain.RoomName) int
}

type Reconciler struct {
	live    LiveView
	store   core.RoomStore
	timeout time.Duration

	// passes are serialized so an older count never lands after a newer one
	mu sync.Mutex
}

func NewReconciler(live LiveView, store core.RoomStore, timeout time.Duration) *Reconciler {
	return &Reconciler{live: live, store: store, timeout: timeout}
}

// ReconcileAll overwrites every room's persisted occupancy with the live
// count. A failing room does not stop the pass.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	telemetry.Inc(telemetry.Reconciliations)

	var errs []error
	for _, room := range r.live.RoomNames() {
		n := r.live.Occupancy(room)
		telemetry.SetOccupancy(string(room), n)
		if err := r.set(ctx, room, n); err != nil {
			telemetry.StoreFailure("set_occupancy")
			errs = append(errs, fmt.Errorf("room %s: %w", room, err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Int("failed", len(errs)).Msg("reconcile pass incomplete")
	} else {
		log.Debug().Str("module", "app.presence").Msg("reconciled")
	}
	return err
}

func (r *Reconciler) set(ctx context.Context, room domain.RoomName, n int) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.store.SetOccupancy(ctx, room, n)
}

// Run reconciles every interval until ctx is done. A non-positive interval
// disables the loop.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.presence").Msg("reconcile loop stopped")
			return
		case <-t.C:
			_ = r.ReconcileAll(ctx)
		}
	}
}
