package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/adapters/signal"
	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
)

// SetupRouter wires the REST endpoints and the signal WebSocket. ctx bounds
// every WebSocket connection; cancel it on shutdown, then Wait on the
// returned controller.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, objects core.ObjectStore, limiter signal.MessageLimiter) (*gin.Engine, *signal.SignalWSController) {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &handlers{orch: o, objects: objects, maxBytes: cfg.Media.MaxBytes}

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/listServer", h.listServer)
	r.POST("/upload", h.upload)
	r.GET("/media/*key", h.media)

	ctrl := signal.NewSignalWSController(o, limiter)
	ctrl.LimitByIP = cfg.Rate.RedisURL != ""
	ctrl.ReadLimit = cfg.WSReadLimit()
	ctrl.PingPeriod = cfg.PingPeriod
	if cfg.SendBuffer > 0 {
		ctrl.SendBuffer = cfg.SendBuffer
	}

	api := r.Group("/api")
	api.GET("/rooms", h.liveRooms)
	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Int64("ws_read_limit", ctrl.ReadLimit).Msg("router setup")
	return r, ctrl
}
