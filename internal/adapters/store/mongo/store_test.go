package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatrelay/internal/domain"
)

func TestDocRoundTrip(t *testing.T) {
	ts := time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local)
	in := domain.Message{
		Room: "종로구", Nickname: "a", Text: "look", Timestamp: ts,
		Attachment: &domain.Attachment{
			ID: "id-1", OriginalName: "cat.png", RemoteURL: "https://cdn/x", ShortURL: "https://s/1",
			Kind: domain.KindImage, Status: domain.AttachmentOK,
		},
	}
	doc := toDoc(in)
	assert.Equal(t, "종로구", doc.ServerName)
	assert.Equal(t, "look", doc.Contents)
	assert.Equal(t, "id-1", doc.FileUUID)

	out := fromDoc(doc)
	in.ID = out.ID
	assert.Equal(t, in, out)
}

func TestDocWithoutAttachment(t *testing.T) {
	out := fromDoc(toDoc(domain.Message{Room: "중구", Nickname: "b", Text: "hi", Timestamp: time.Now()}))
	assert.Nil(t, out.Attachment)
}

func TestMongoIntegration(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, uri, "chatrelay_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	room := domain.RoomName("test-" + uuid.NewString())
	n, err := s.SeedRooms(ctx, []domain.RoomName{room})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.IncrementOccupancy(ctx, room, 1))

	_, err = s.Append(ctx, domain.Message{Room: room, Nickname: "a", Text: "first", Timestamp: time.Now()})
	require.NoError(t, err)
	got, err := s.QueryToday(ctx, room)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Text)
}
