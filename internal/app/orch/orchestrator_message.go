package orch

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/app/media"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/telemetry"
)

// AttachmentInput is a client-submitted attachment.
type AttachmentInput struct {
	Name string
	Kind domain.AttachmentKind
	// Size is the decoded payload size, -1 when unknown.
	Size int64
	Body io.Reader
}

type MessageInput struct {
	Room       domain.RoomName
	Nickname   string
	Text       string
	Attachment *AttachmentInput
}

// Send handles message ingress from a joined connection. Text-only messages
// are persisted and broadcast before Send returns; a store failure is logged
// and the broadcast still happens. Attachments go to the media pipeline and
// are broadcast once it completes.
func (o *Orchestrator) Send(ctx context.Context, sid core.SessionID, in MessageInput) error {
	if _, ok := o.Registry.Rooms().Get(in.Room); !ok {
		return domain.ErrRoomUnknown
	}
	joined, sess, ok := o.Registry.RoomOf(sid)
	if !ok || joined != in.Room {
		return domain.ErrNotJoined
	}
	nick, err := domain.NormalizeNickname(in.Nickname)
	if err != nil {
		nick = sess.Meta().Nickname
	}

	if a := in.Attachment; a != nil {
		return o.Media.Submit(ctx, media.Job{
			Room:         in.Room,
			Nickname:     nick,
			Text:         in.Text,
			OriginalName: a.Name,
			KindHint:     a.Kind,
			Size:         a.Size,
			Body:         a.Body,
		})
	}

	if strings.TrimSpace(in.Text) == "" {
		return domain.ErrEmptyMessage
	}
	msg := domain.Message{
		Room:      in.Room,
		Nickname:  nick,
		Text:      in.Text,
		Timestamp: o.now(),
	}
	sctx, cancel := o.storeCtx(ctx)
	stored, err := o.History.Append(sctx, msg)
	cancel()
	if err != nil {
		telemetry.StoreFailure("append")
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(in.Room)).Str("sid", string(sid)).Msg("message not persisted, broadcasting anyway")
	} else {
		msg = stored
	}
	o.Broadcast(msg)
	return nil
}

// Upload is the synchronous HTTP attachment path: the message is broadcast
// only when upload and persistence both succeeded.
func (o *Orchestrator) Upload(ctx context.Context, in MessageInput) (domain.Message, error) {
	if _, ok := o.Registry.Rooms().Get(in.Room); !ok {
		return domain.Message{}, domain.ErrRoomUnknown
	}
	nick, err := domain.NormalizeNickname(in.Nickname)
	if err != nil {
		return domain.Message{}, err
	}
	if in.Attachment == nil {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	a := in.Attachment
	msg, err := o.Media.Deliver(ctx, media.Job{
		Room:         in.Room,
		Nickname:     nick,
		Text:         in.Text,
		OriginalName: a.Name,
		KindHint:     a.Kind,
		Size:         a.Size,
		Body:         a.Body,
	})
	if err != nil {
		return domain.Message{}, err
	}
	o.Broadcast(msg)
	return msg, nil
}
