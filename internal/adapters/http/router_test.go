package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/chatrelay/internal/adapters/store/memory"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/app/media"
	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/app/presence"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/core/mocks"
	"github.com/dkeye/chatrelay/internal/domain"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)

type frames struct {
	mu  sync.Mutex
	got []core.Frame
}

func (f *frames) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, fr)
	return nil
}

func (f *frames) Close() {}

func (f *frames) count(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, fr := range f.got {
		var ev struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(fr, &ev) == nil && ev.Type == typ {
			n++
		}
	}
	return n
}

type env struct {
	router  *gin.Engine
	orch    *orch.Orchestrator
	store   *memory.Store
	objects *mocks.MockObjectStore
	short   *mocks.MockShortener
	ctrl    *gomock.Controller
}

func newEnv(t *testing.T, maxBytes int64) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	rooms := []domain.RoomName{"중구", "종로구"}
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
		PublicBaseURL:  "http://localhost:3000/media",
		UploadTimeout:  time.Second,
		ShortenTimeout: time.Second,
		StoreTimeout:   time.Second,
	}, objects, short, store)
	t.Cleanup(pipe.Close)
	o := &orch.Orchestrator{
		Registry:     reg,
		Policy:       app.SimplePolicy{},
		History:      store,
		Rooms:        store,
		Media:        pipe,
		Presence:     presence.NewReconciler(reg, store, time.Second),
		StoreTimeout: time.Second,
	}
	cfg := &config.Config{Mode: "test", Media: config.MediaConfig{MaxBytes: maxBytes}}
	router, _ := SetupRouter(context.Background(), cfg, o, objects, nil)
	return &env{
		router:  router,
		orch:    o,
		store:   store,
		objects: objects,
		short:   short,
		ctrl:    ctrl,
	}
}

func (e *env) do(req *nethttp.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, fields map[string]string, file []byte) *nethttp.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "cat.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(nethttp.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestListServer(t *testing.T) {
	e := newEnv(t, 1<<20)
	require.NoError(t, e.store.IncrementOccupancy(context.Background(), "중구", 2))

	w := e.do(httptest.NewRequest(nethttp.MethodGet, "/listServer", nil))
	require.Equal(t, nethttp.StatusOK, w.Code)
	var rooms []domain.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 2)
	assert.Equal(t, domain.RoomName("종로구"), rooms[0].Name)
	assert.Equal(t, domain.RoomName("중구"), rooms[1].Name)
	assert.Equal(t, 2, rooms[1].Occupancy)
	assert.Contains(t, w.Body.String(), `"persistedOccupancy"`)
}

func TestListServerStoreFailure(t *testing.T) {
	e := newEnv(t, 1<<20)
	rs := mocks.NewMockRoomStore(e.ctrl)
	rs.EXPECT().ListRooms(gomock.Any()).Return(nil, domain.ErrStoreUnavailable)
	e.orch.Rooms = rs

	w := e.do(httptest.NewRequest(nethttp.MethodGet, "/listServer", nil))
	assert.Equal(t, nethttp.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestLiveRoomsAndHealth(t *testing.T) {
	e := newEnv(t, 1<<20)
	e.orch.Connect("s1", &frames{}, nil)
	require.NoError(t, e.orch.Join(context.Background(), "s1", "중구", "alice"))

	w := e.do(httptest.NewRequest(nethttp.MethodGet, "/api/rooms", nil))
	require.Equal(t, nethttp.StatusOK, w.Code)
	var live []core.RoomInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &live))
	require.Len(t, live, 2)
	assert.Equal(t, core.RoomInfo{Name: "중구", Occupancy: 1}, live[1])

	w = e.do(httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
}

func TestUploadBroadcastsOnSuccess(t *testing.T) {
	e := newEnv(t, 1<<20)
	member := &frames{}
	e.orch.Connect("s1", member, nil)
	require.NoError(t, e.orch.Join(context.Background(), "s1", "종로구", "alice"))

	e.objects.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), "image/png").Return(core.ObjectInfo{}, nil)
	e.short.EXPECT().Shorten(gomock.Any(), gomock.Any()).Return("", errors.New("shortener down"))

	w := e.do(uploadRequest(t, map[string]string{"room": "종로구", "nickname": "web", "text": "photo"}, pngBytes))
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())
	var msg domain.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "cat.png", msg.Attachment.OriginalName)
	assert.Equal(t, msg.Attachment.RemoteURL, msg.Attachment.ShortURL, "shorten falls back to the full url")
	assert.Equal(t, 1, member.count("message"))
}

func TestUploadFailures(t *testing.T) {
	e := newEnv(t, 16)
	member := &frames{}
	e.orch.Connect("s1", member, nil)
	require.NoError(t, e.orch.Join(context.Background(), "s1", "종로구", "alice"))

	w := e.do(uploadRequest(t, map[string]string{"room": "종로구", "nickname": "web"}, pngBytes))
	assert.Equal(t, nethttp.StatusRequestEntityTooLarge, w.Code)

	w = e.do(uploadRequest(t, map[string]string{"room": "강남구", "nickname": "web"}, pngBytes[:8]))
	assert.Equal(t, nethttp.StatusNotFound, w.Code)

	w = e.do(uploadRequest(t, map[string]string{"room": "종로구", "nickname": "web"}, nil))
	assert.Equal(t, nethttp.StatusBadRequest, w.Code)

	e.objects.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(core.ObjectInfo{}, errors.New("bucket gone"))
	w = e.do(uploadRequest(t, map[string]string{"room": "종로구", "nickname": "web"}, pngBytes[:8]))
	assert.Equal(t, nethttp.StatusInternalServerError, w.Code)

	assert.Equal(t, 0, member.count("message"))
	stored, err := e.store.QueryToday(context.Background(), "종로구")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestMedia(t *testing.T) {
	e := newEnv(t, 1<<20)
	e.objects.EXPECT().Get(gomock.Any(), "chat/a.png").
		Return(io.NopCloser(bytes.NewReader(pngBytes)), core.ObjectInfo{Key: "chat/a.png", Size: uint64(len(pngBytes)), ContentType: "image/png"}, nil)
	e.objects.EXPECT().Get(gomock.Any(), "chat/missing.png").
		Return(nil, core.ObjectInfo{}, core.ErrObjectNotFound)

	w := e.do(httptest.NewRequest(nethttp.MethodGet, "/media/chat/a.png", nil))
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w = e.do(httptest.NewRequest(nethttp.MethodGet, "/media/chat/missing.png", nil))
	assert.Equal(t, nethttp.StatusNotFound, w.Code)
}
