// Package telemetry provides Prometheus metrics for the relay.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	MessagesBroadcast prometheus.Counter
	BroadcastDropped  prometheus.Counter
	StoreFailures     *prometheus.CounterVec
	UploadsSucceeded  prometheus.Counter
	UploadsFailed     prometheus.Counter
	ShortenFallbacks  prometheus.Counter
	Reconciliations   prometheus.Counter

	UploadDuration prometheus.Observer

	LiveOccupancy *prometheus.GaugeVec
	MediaInFlight prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesBroadcast = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_messages_broadcast_total", Help: "Messages fanned out to a room"})
		BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_broadcast_dropped_total", Help: "Frames dropped because a member's send buffer was full"})
		StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatrelay_store_failures_total", Help: "History/room store calls that failed"}, []string{"op"})
		UploadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_uploads_succeeded_total", Help: "Attachments uploaded to the object store"})
		UploadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_uploads_failed_total", Help: "Attachments whose upload failed or timed out"})
		ShortenFallbacks = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_shorten_fallbacks_total", Help: "Short links replaced by the full remote URL"})
		Reconciliations = promauto.NewCounter(prometheus.CounterOpts{Name: "chatrelay_reconciliations_total", Help: "Presence reconciliation passes"})
		UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatrelay_upload_duration_seconds", Help: "Object store upload duration seconds", Buckets: prometheus.DefBuckets})
		LiveOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "chatrelay_room_occupancy", Help: "Live members per room at the last reconciliation"}, []string{"room"})
		MediaInFlight = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatrelay_media_jobs_in_flight", Help: "Attachment jobs currently running"})
	})
}

func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

func StoreFailure(op string) {
	if StoreFailures != nil {
		StoreFailures.WithLabelValues(op).Inc()
	}
}

func SetOccupancy(room string, n int) {
	if LiveOccupancy != nil {
		LiveOccupancy.WithLabelValues(room).Set(float64(n))
	}
}

func AddInFlight(d float64) {
	if MediaInFlight != nil {
		MediaInFlight.Add(d)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}
