// Package orch is the relay core: it drives each connection through
// Unjoined -> Joined -> Closed and fans messages out to rooms.
package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/app/media"
	"github.com/dkeye/chatrelay/internal/app/presence"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/telemetry"
)

type Orchestrator struct {
	Registry *app.Registry
	Policy   app.Policy
	History  core.HistoryStore
	Rooms    core.RoomStore
	Media    *media.Pipeline
	Presence *presence.Reconciler

	StoreTimeout time.Duration
	Now          func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.StoreTimeout)
}

// Run broadcasts finished attachment jobs until the pipeline is closed.
func (o *Orchestrator) Run() {
	for msg := range o.Media.Completions() {
		o.Broadcast(msg)
	}
	log.Info().Str("module", "app.orch").Msg("media completions drained")
}

// Broadcast sends msg to whoever is in its room right now. The sender may
// have left already.
func (o *Orchestrator) Broadcast(msg domain.Message) core.PublishResult {
	room, ok := o.Registry.Rooms().Get(msg.Room)
	if !ok {
		log.Warn().Str("module", "app.orch").Str("room", string(msg.Room)).Msg("broadcast to unknown room")
		return core.PublishResult{}
	}
	frame, err := Encode(MessageEvent{Type: EventMessage, Message: msg})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("encode message")
		return core.PublishResult{}
	}
	res := room.Broadcast(frame)
	telemetry.Inc(telemetry.MessagesBroadcast)
	o.onDropped(msg.Room, res)
	return res
}

func (o *Orchestrator) broadcastEvent(name domain.RoomName, v any) {
	room, ok := o.Registry.Rooms().Get(name)
	if !ok {
		return
	}
	frame, err := Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("encode event")
		return
	}
	o.onDropped(name, room.Broadcast(frame))
}

func (o *Orchestrator) onDropped(name domain.RoomName, res core.PublishResult) {
	for _, sid := range res.Dropped {
		telemetry.Inc(telemetry.BroadcastDropped)
		if o.Policy == nil {
			continue
		}
		switch o.Policy.OnBackPressure(name, sid) {
		case app.KickMember:
			log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(name)).Msg("kicking slow member")
			o.Registry.Cancel(sid)
		case app.NoAction:
		}
	}
}

// SendTo delivers v privately to one connection.
func (o *Orchestrator) SendTo(sid core.SessionID, v any) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return
	}
	frame, err := Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("encode private event")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Msg("private send failed")
	}
}

// LiveRooms is the live occupancy view.
func (o *Orchestrator) LiveRooms() []core.RoomInfo {
	return o.Registry.Rooms().List()
}

func (o *Orchestrator) reconcile(ctx context.Context) {
	if o.Presence == nil {
		return
	}
	_ = o.Presence.ReconcileAll(ctx)
}
