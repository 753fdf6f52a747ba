package signal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

type attachmentPayload struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
	// Data is standard base64.
	Data string `json:"data"`
}

type messagePayload struct {
	Type       string             `json:"type"`
	Room       string             `json:"room"`
	Nickname   string             `json:"nickname"`
	Text       string             `json:"text,omitempty"`
	Attachment *attachmentPayload `json:"attachment,omitempty"`
}

func (ctl *SignalWSController) handleMessage(ctx context.Context, sid core.SessionID, conn *WsSignalConn, data []byte) {
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendError(conn, CodeBadPayload)
		return
	}

	in := orch.MessageInput{
		Room:     domain.RoomName(p.Room),
		Nickname: p.Nickname,
		Text:     p.Text,
	}
	if a := p.Attachment; a != nil {
		if a.Data == "" {
			ctl.sendError(conn, CodeBadPayload)
			return
		}
		in.Attachment = &orch.AttachmentInput{
			Name: a.Name,
			Kind: kindHint(a.Kind),
			Size: decodedLen(a.Data),
			Body: base64.NewDecoder(base64.StdEncoding, strings.NewReader(a.Data)),
		}
	}

	if err := ctl.Orch.Send(ctx, sid, in); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("message rejected")
		ctl.sendError(conn, errorCode(err))
	}
}

// decodedLen is the exact payload size of a padded base64 string.
func decodedLen(s string) int64 {
	n := int64(base64.StdEncoding.DecodedLen(len(s)))
	n -= int64(len(s) - len(strings.TrimRight(s, "=")))
	if n < 0 {
		return 0
	}
	return n
}

func kindHint(s string) domain.AttachmentKind {
	switch k := domain.AttachmentKind(s); k {
	case domain.KindImage, domain.KindVideo:
		return k
	}
	return ""
}
