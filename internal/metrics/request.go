package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request allocation sources.
const (
	SourceNew  = "new"
	SourcePool = "pool"
)

var (
	requestsAllocated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "allocated_total",
		Help:      "Media requests handed out, by source (new or pool)",
	}, []string{"device", "source"})

	requestsRecycled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "recycled_total",
		Help:      "Media requests reinitialized and returned to the idle pool",
	}, []string{"device"})

	requestsDestroyed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "destroyed_total",
		Help:      "Media requests closed, by reason",
	}, []string{"device", "reason"})

	requestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "submitted_total",
		Help:      "Media requests queued to the driver",
	}, []string{"device"})

	requestSubmitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "submit_failures_total",
		Help:      "MEDIA_REQUEST_IOC_QUEUE failures",
	}, []string{"device"})

	requestPoolIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "pool_idle",
		Help:      "Requests waiting in the idle pool",
	}, []string{"device"})

	requestsOutstanding = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "v4l2codecs",
		Subsystem: "request",
		Name:      "outstanding",
		Help:      "Requests allocated and not yet released",
	}, []string{"device"})
)

// RecordRequestAllocated counts a request handed out and marks it outstanding.
func RecordRequestAllocated(device, source string) {
	requestsAllocated.WithLabelValues(device, source).Inc()
	requestsOutstanding.WithLabelValues(device).Inc()
}

// RecordRequestReleased marks a request as no longer outstanding.
func RecordRequestReleased(device string) {
	requestsOutstanding.WithLabelValues(device).Dec()
}

// RecordRequestRecycled counts a request returned to the pool.
func RecordRequestRecycled(device string) {
	requestsRecycled.WithLabelValues(device).Inc()
}

// RecordRequestDestroyed counts a request closed for reason.
func RecordRequestDestroyed(device, reason string) {
	requestsDestroyed.WithLabelValues(device, reason).Inc()
}

// RecordRequestSubmitted counts a successful submission.
func RecordRequestSubmitted(device string) {
	requestsSubmitted.WithLabelValues(device).Inc()
}

// RecordRequestSubmitFailure counts a failed submission.
func RecordRequestSubmitFailure(device string) {
	requestSubmitFailures.WithLabelValues(device).Inc()
}

// SetRequestPoolIdle sets the idle pool size for a device.
func SetRequestPoolIdle(device string, n int) {
	requestPoolIdle.WithLabelValues(device).Set(float64(n))
}

// DeleteRequestMetrics removes the per-device gauges. Counters are kept so
// rates stay continuous across reopen.
func DeleteRequestMetrics(device string) {
	requestPoolIdle.DeleteLabelValues(device)
	requestsOutstanding.DeleteLabelValues(device)
}
