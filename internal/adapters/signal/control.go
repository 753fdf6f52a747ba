package signal

import (
	"errors"

	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/domain"
)

// Client visible error codes.
const (
	CodeBadPayload      = "bad_payload"
	CodeRoomUnknown     = "room_unknown"
	CodeNotJoined       = "not_joined"
	CodeEmptyMessage    = "empty_message"
	CodePayloadTooLarge = "payload_too_large"
	CodeRateLimited     = "rate_limited"
	CodeInvalidNickname = "invalid_nickname"
	CodeInternal        = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomUnknown):
		return CodeRoomUnknown
	case errors.Is(err, domain.ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, domain.ErrEmptyMessage):
		return CodeEmptyMessage
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return CodePayloadTooLarge
	case errors.Is(err, domain.ErrNicknameEmpty), errors.Is(err, domain.ErrNicknameTooLong):
		return CodeInvalidNickname
	default:
		return CodeInternal
	}
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, code string) {
	ctl.sendJSON(conn, orch.ErrorEvent{Type: orch.EventError, Error: code})
}

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, orch.SimpleEvent{Type: orch.EventPong})
}
