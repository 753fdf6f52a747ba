package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/telemetry"
)

// Connect registers a fresh connection in the Unjoined state.
func (o *Orchestrator) Connect(sid core.SessionID, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.BindSignal(sid, core.NewMemberSession(domain.Member{}, sig), cancel)
}

// Join moves sid into room, announces it and replays today's history to
// the joiner only. Joining while in another room is a leave then a join.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, room domain.RoomName, nickname string) error {
	nick, err := domain.NormalizeNickname(nickname)
	if err != nil {
		return err
	}
	if _, ok := o.Registry.Rooms().Get(room); !ok {
		return domain.ErrRoomUnknown
	}
	if prev, _, ok := o.Registry.RoomOf(sid); ok && prev != room {
		o.Leave(ctx, sid)
	}
	res, err := o.Registry.Join(room, sid, nick)
	if err != nil {
		return err
	}
	if res.Left != "" {
		// A concurrent join on the same sid moved it; the reconcile pass
		// already counts the joiner, so no increment.
		o.broadcastEvent(res.Left, PresenceEvent{Type: EventExit, Nickname: nick})
		o.reconcile(ctx)
	} else if res.Added {
		o.incrementOccupancy(ctx, room)
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(room)).Str("nickname", nick).Msg("member entered")

	o.broadcastEvent(room, PresenceEvent{Type: EventEnter, Nickname: nick})
	o.SendTo(sid, HistoryEvent{Type: EventHistory, Room: room, Messages: o.history(ctx, room)})
	return nil
}

func (o *Orchestrator) incrementOccupancy(ctx context.Context, room domain.RoomName) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	if err := o.Rooms.IncrementOccupancy(sctx, room, 1); err != nil {
		telemetry.StoreFailure("increment_occupancy")
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(room)).Msg("failed to increment occupancy")
	}
}

// history never fails: a store error replays nothing.
func (o *Orchestrator) history(ctx context.Context, room domain.RoomName) []domain.Message {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()
	msgs, err := o.History.QueryToday(sctx, room)
	if err != nil {
		telemetry.StoreFailure("query_today")
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(room)).Msg("failed to load history")
		return []domain.Message{}
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs
}

// Leave takes sid out of its room without closing the connection.
func (o *Orchestrator) Leave(ctx context.Context, sid core.SessionID) {
	nick := o.nickname(sid)
	room, ok := o.Registry.Leave(sid)
	if !ok {
		return
	}
	o.broadcastEvent(room, PresenceEvent{Type: EventExit, Nickname: nick})
	o.reconcile(ctx)
}

// Disconnect closes the connection's lifecycle and reconciles every room.
// The connection's own context is usually done by now, so store writes
// run detached from it.
func (o *Orchestrator) Disconnect(ctx context.Context, sid core.SessionID) {
	ctx = context.WithoutCancel(ctx)
	nick := o.nickname(sid)
	room, ok := o.Registry.Unbind(sid)
	if ok {
		o.broadcastEvent(room, PresenceEvent{Type: EventExit, Nickname: nick})
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(room)).Msg("disconnected")
	o.reconcile(ctx)
}

func (o *Orchestrator) nickname(sid core.SessionID) string {
	if sess, ok := o.Registry.GetSession(sid); ok {
		return sess.Meta().Nickname
	}
	return ""
}
