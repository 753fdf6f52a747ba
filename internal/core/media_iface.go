package core

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

//go:generate mockgen -destination=mocks/mock_media.go -package=mocks . ObjectStore,Shortener
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . HistoryStore,RoomStore

// ObjectInfo represents metadata about a stored object.
type ObjectInfo struct {
	Key         string
	Size        uint64
	ContentType string
	ModTime     time.Time
}

// ObjectStore is the remote object storage the media pipeline uploads to.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
}

// Shortener turns a long URL into a short link.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}
