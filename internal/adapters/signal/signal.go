package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter MessageLimiter

	// LimitByIP keys the limiter on the client address instead of the
	// connection.
	LimitByIP bool

	// ReadLimit caps a single inbound frame, 0 means unlimited.
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int

	pumps conc.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, limiter MessageLimiter) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		Limiter:    limiter,
		SendBuffer: 64,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either
// side closes it or ctx is done. Every connection gets its own session id.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("remote", c.ClientIP()).Msg("new WS connection")

	buf := ctl.SendBuffer
	if buf <= 0 {
		buf = 64
	}
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buf),
	}

	limitKey := string(sid)
	if ctl.LimitByIP {
		limitKey = c.ClientIP()
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sid, conn, cancel)

	ctl.pumps.Go(func() { ctl.writePump(ctx, conn) })
	ctl.pumps.Go(func() { ctl.readPump(ctx, cancel, sid, limitKey, conn) })
}

// Wait blocks until every connection has finished its disconnect. Cancel
// the context passed to HandleSignal first.
func (ctl *SignalWSController) Wait() {
	ctl.pumps.Wait()
}

func (ctl *SignalWSController) allow(ctx context.Context, key string) bool {
	if ctl.Limiter == nil {
		return true
	}
	return ctl.Limiter.Allow(ctx, key)
}
