package signal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/chatrelay/internal/adapters/store/memory"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/app/media"
	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/app/presence"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/core/mocks"
	"github.com/dkeye/chatrelay/internal/domain"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

type inbound struct {
	Type       string             `json:"type"`
	Error      string             `json:"error"`
	Nickname   string             `json:"nickname"`
	Text       string             `json:"text"`
	Messages   []domain.Message   `json:"messages"`
	Attachment *domain.Attachment `json:"attachment"`
}

type fixture struct {
	url     string
	ctl     *SignalWSController
	reg     *app.Registry
	stop    context.CancelFunc
	store   *memory.Store
	objects *mocks.MockObjectStore
	short   *mocks.MockShortener
}

func newFixture(t *testing.T, maxBytes int64, limiter MessageLimiter) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	rooms := []domain.RoomName{"종로구", "중구"}

	store := memory.New()
	_, err := store.SeedRooms(context.Background(), rooms)
	require.NoError(t, err)
	reg := app.NewRegistry(app.NewRoomManager(rooms))
	objects := mocks.NewMockObjectStore(ctrl)
	short := mocks.NewMockShortener(ctrl)
	pipe := media.NewPipeline(media.Config{
		TempDir:        t.TempDir(),
		MaxBytes:       maxBytes,
		KeyPrefix:      "chat",
		PublicBaseURL:  "http://media.test",
		UploadTimeout:  time.Second,
		ShortenTimeout: time.Second,
		StoreTimeout:   time.Second,
	}, objects, short, store)
	o := &orch.Orchestrator{
		Registry:     reg,
		Policy:       app.SimplePolicy{},
		History:      store,
		Rooms:        store,
		Media:        pipe,
		Presence:     presence.NewReconciler(reg, store, time.Second),
		StoreTimeout: time.Second,
	}
	done := make(chan struct{})
	go func() {
		o.Run()
		close(done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	ctl := NewSignalWSController(o, limiter)
	ctl.ReadLimit = 1 << 20
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		srv.Close()
		pipe.Close()
		<-done
	})
	return &fixture{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		ctl:     ctl,
		reg:     reg,
		stop:    cancel,
		store:   store,
		objects: objects,
		short:   short,
	}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, ws *websocket.Conn, typ string) inbound {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err, "waiting for %q", typ)
		var ev inbound
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == typ {
			return ev
		}
	}
}

func (f *fixture) persisted(t *testing.T, room domain.RoomName) int {
	rooms, err := f.store.ListRooms(context.Background())
	require.NoError(t, err)
	for _, r := range rooms {
		if r.Name == room {
			return r.Occupancy
		}
	}
	return -1
}

func TestJoinChatAndDisconnect(t *testing.T) {
	f := newFixture(t, 1<<20, nil)

	a := f.dial(t)
	send(t, a, map[string]string{"type": "join", "room": "종로구", "nickname": "alice"})
	assert.Equal(t, "alice", expect(t, a, "enter").Nickname)
	hist := expect(t, a, "history")
	assert.Empty(t, hist.Messages)

	b := f.dial(t)
	send(t, b, map[string]string{"type": "join", "room": "종로구", "nickname": "bob"})
	expect(t, b, "history")
	assert.Equal(t, "bob", expect(t, a, "enter").Nickname)

	send(t, b, map[string]string{"type": "message", "room": "종로구", "nickname": "bob", "text": "hi"})
	for _, ws := range []*websocket.Conn{a, b} {
		msg := expect(t, ws, "message")
		assert.Equal(t, "hi", msg.Text)
		assert.Equal(t, "bob", msg.Nickname)
	}

	require.NoError(t, b.Close())
	assert.Equal(t, "bob", expect(t, a, "exit").Nickname)
	require.Eventually(t, func() bool { return f.persisted(t, "종로구") == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestErrorsAreSentPrivately(t *testing.T) {
	f := newFixture(t, 1<<20, nil)
	ws := f.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, CodeBadPayload, expect(t, ws, "error").Error)

	send(t, ws, map[string]string{"type": "join", "room": "강남구", "nickname": "x"})
	assert.Equal(t, CodeRoomUnknown, expect(t, ws, "error").Error)

	send(t, ws, map[string]string{"type": "join", "room": "종로구", "nickname": "   "})
	assert.Equal(t, CodeInvalidNickname, expect(t, ws, "error").Error)

	send(t, ws, map[string]string{"type": "message", "room": "종로구", "text": "hi"})
	assert.Equal(t, CodeNotJoined, expect(t, ws, "error").Error)

	send(t, ws, map[string]string{"type": "join", "room": "종로구", "nickname": "x"})
	expect(t, ws, "history")
	send(t, ws, map[string]string{"type": "message", "room": "종로구", "text": ""})
	assert.Equal(t, CodeEmptyMessage, expect(t, ws, "error").Error)

	send(t, ws, map[string]string{"type": "ping"})
	expect(t, ws, "pong")
	send(t, ws, map[string]string{"type": "leave"})
	expect(t, ws, "left")
	assert.Equal(t, 0, f.persisted(t, "종로구"))
}

func TestAttachmentOverWebSocket(t *testing.T) {
	f := newFixture(t, 1<<20, nil)
	f.objects.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), "image/png").
		Return(core.ObjectInfo{}, nil)
	f.short.EXPECT().Shorten(gomock.Any(), gomock.Any()).Return("http://s.test/x", nil)

	ws := f.dial(t)
	send(t, ws, map[string]string{"type": "join", "room": "중구", "nickname": "alice"})
	expect(t, ws, "history")
	send(t, ws, map[string]any{
		"type": "message", "room": "중구", "text": "look",
		"attachment": map[string]string{"name": "cat.png", "data": base64.StdEncoding.EncodeToString(pngBytes)},
	})
	msg := expect(t, ws, "message")
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "alice", msg.Nickname)
	assert.Equal(t, domain.AttachmentOK, msg.Attachment.Status)
	assert.Equal(t, domain.KindImage, msg.Attachment.Kind)
	assert.Equal(t, "http://s.test/x", msg.Attachment.ShortURL)
	assert.True(t, strings.HasPrefix(msg.Attachment.RemoteURL, "http://media.test/chat/"))
}

func TestAttachmentTooLarge(t *testing.T) {
	f := newFixture(t, 16, nil)
	ws := f.dial(t)
	send(t, ws, map[string]string{"type": "join", "room": "중구", "nickname": "alice"})
	expect(t, ws, "history")
	send(t, ws, map[string]any{
		"type": "message", "room": "중구",
		"attachment": map[string]string{"name": "cat.png", "data": base64.StdEncoding.EncodeToString(pngBytes)},
	})
	assert.Equal(t, CodePayloadTooLarge, expect(t, ws, "error").Error)
}

func TestRateLimited(t *testing.T) {
	f := newFixture(t, 1<<20, NewRoomRateLimiter(1, time.Minute))
	ws := f.dial(t)
	send(t, ws, map[string]string{"type": "join", "room": "중구", "nickname": "alice"})
	expect(t, ws, "history")
	send(t, ws, map[string]string{"type": "message", "room": "중구", "text": "one"})
	expect(t, ws, "message")
	send(t, ws, map[string]string{"type": "message", "room": "중구", "text": "two"})
	assert.Equal(t, CodeRateLimited, expect(t, ws, "error").Error)
}

func TestRoomRateLimiterWindow(t *testing.T) {
	rl := NewRoomRateLimiter(2, time.Second)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	ctx := context.Background()

	assert.True(t, rl.Allow(ctx, "a"))
	assert.True(t, rl.Allow(ctx, "a"))
	assert.False(t, rl.Allow(ctx, "a"))
	assert.True(t, rl.Allow(ctx, "b"))

	now = now.Add(1100 * time.Millisecond)
	assert.True(t, rl.Allow(ctx, "a"))

	rl.Forget("a")
	assert.NotContains(t, rl.history, "a")

	var nilLimiter *RoomRateLimiter
	assert.True(t, nilLimiter.Allow(ctx, "a"))
}

func TestDecodedLen(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 100} {
		enc := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{'x'}, n))
		assert.Equal(t, int64(n), decodedLen(enc), "n=%d", n)
	}
}

func TestShutdownWaitsForDisconnects(t *testing.T) {
	f := newFixture(t, 1<<20, nil)
	for _, nick := range []string{"alice", "bob"} {
		ws := f.dial(t)
		send(t, ws, map[string]string{"type": "join", "room": "종로구", "nickname": nick})
		expect(t, ws, "history")
	}
	require.Equal(t, 2, f.persisted(t, "종로구"))

	f.stop()
	f.ctl.Wait()

	assert.Equal(t, 0, f.reg.Occupancy("종로구"))
	assert.Equal(t, 0, f.persisted(t, "종로구"), "every disconnect reconciled before Wait returned")
}
