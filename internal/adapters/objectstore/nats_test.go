package objectstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatrelay/internal/core"
)

func TestJetStreamStoreRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, url, "chatrelay-test")
	require.NoError(t, err)
	defer s.Close()

	key := "chat/" + uuid.NewString() + ".png"
	body := []byte("not really a png")
	info, err := s.Put(ctx, key, bytes.NewReader(body), "image/png")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(body)), info.Size)

	rc, got, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, "image/png", got.ContentType)

	_, _, err = s.Get(ctx, "chat/"+uuid.NewString())
	require.ErrorIs(t, err, core.ErrObjectNotFound)
}
