package domain

import (
	"strings"
	"time"
)

type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindVideo AttachmentKind = "video"
)

// KindFromMIME maps a sniffed content type onto an attachment kind.
// Anything that is not video is shown as an image.
func KindFromMIME(mime string) AttachmentKind {
	if strings.HasPrefix(mime, "video/") {
		return KindVideo
	}
	return KindImage
}

type AttachmentStatus string

const (
	AttachmentOK     AttachmentStatus = "ok"
	AttachmentFailed AttachmentStatus = "failed"
)

type Attachment struct {
	ID           string           `json:"id"`
	OriginalName string           `json:"originalName"`
	RemoteURL    string           `json:"remoteUrl,omitempty"`
	ShortURL     string           `json:"shortUrl,omitempty"`
	Kind         AttachmentKind   `json:"kind"`
	Status       AttachmentStatus `json:"status"`
}

// Message is immutable once persisted. ID is assigned by the history store
// and stays empty when the append failed.
type Message struct {
	ID         string      `json:"id,omitempty"`
	Room       RoomName    `json:"room"`
	Nickname   string      `json:"nickname"`
	Text       string      `json:"text,omitempty"`
	Timestamp  time.Time   `json:"serverTimestamp"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
