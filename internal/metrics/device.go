package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decoderInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "v4l2codecs",
		Subsystem: "decoder",
		Name:      "info",
		Help:      "Stateless decoders present, one series per node and codec",
	}, []string{"device", "media", "driver", "codec"})

	decodersPresent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "v4l2codecs",
		Subsystem: "decoder",
		Name:      "present",
		Help:      "Number of stateless decoder nodes found",
	})

	hotplugEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "v4l2codecs",
		Subsystem: "hotplug",
		Name:      "events_total",
		Help:      "Kernel uevents seen for video4linux and media devices",
	}, []string{"subsystem", "action"})
)

// DecoderSeries identifies one decoder info series.
type DecoderSeries struct {
	Device string
	Media  string
	Driver string
	Codec  string
}

// SetDecoders replaces the decoder info series with series.
func SetDecoders(series []DecoderSeries) {
	decoderInfo.Reset()
	nodes := make(map[string]struct{})
	for _, s := range series {
		decoderInfo.WithLabelValues(s.Device, s.Media, s.Driver, s.Codec).Set(1)
		nodes[s.Device] = struct{}{}
	}
	decodersPresent.Set(float64(len(nodes)))
}

// RecordHotplugEvent counts a uevent.
func RecordHotplugEvent(subsystem, action string) {
	hotplugEvents.WithLabelValues(subsystem, action).Inc()
}
