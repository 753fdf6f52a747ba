package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.SessionID, conn *WsSignalConn, data []byte) {
	type joinPayload struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		Nickname string `json:"nickname"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, CodeBadPayload)
		return
	}

	if err := ctl.Orch.Join(ctx, sid, domain.RoomName(p.Room), p.Nickname); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join rejected")
		ctl.sendError(conn, errorCode(err))
		return
	}
}

// handleLeave exits the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sid core.SessionID, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Leave(ctx, sid)
	ctl.sendJSON(conn, orch.SimpleEvent{Type: orch.EventLeft})
}
