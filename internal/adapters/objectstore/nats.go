// Package objectstore uploads attachments to a NATS JetStream object store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
)

const defaultContentType = "application/octet-stream"

type JetStreamStore struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
}

// Connect dials natsURL and opens (or creates) bucket.
func Connect(ctx context.Context, natsURL, bucket string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL, nats.Name("chatrelay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "chat attachments",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create object store bucket: %w", err)
		}
	}
	log.Info().Str("module", "objectstore").Str("bucket", bucket).Msg("object store ready")
	return &JetStreamStore{conn: conn, store: store}, nil
}

func (s *JetStreamStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (core.ObjectInfo, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	info, err := s.store.Put(ctx, jetstream.ObjectMeta{
		Name:    key,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}, r)
	if err != nil {
		return core.ObjectInfo{}, fmt.Errorf("failed to store object: %w", err)
	}
	return core.ObjectInfo{Key: info.Name, Size: info.Size, ContentType: contentType, ModTime: info.ModTime}, nil
}

func (s *JetStreamStore) Get(ctx context.Context, key string) (io.ReadCloser, core.ObjectInfo, error) {
	res, err := s.store.Get(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, core.ObjectInfo{}, fmt.Errorf("%w: %s", core.ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, core.ObjectInfo{}, fmt.Errorf("failed to get object: %w", err)
	}
	info, err := res.Info()
	if err != nil {
		_ = res.Close()
		return nil, core.ObjectInfo{}, fmt.Errorf("failed to get object info: %w", err)
	}
	ct := defaultContentType
	if info.Headers != nil {
		if v := info.Headers.Get("Content-Type"); v != "" {
			ct = v
		}
	}
	return res, core.ObjectInfo{Key: info.Name, Size: info.Size, ContentType: ct, ModTime: info.ModTime}, nil
}

func (s *JetStreamStore) Close() {
	s.conn.Close()
}
