//go:build linux

// Package collectors feeds device state into the metrics package.
package collectors

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/internal/metrics"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// DecoderCollector rescans the stateless decoders on a fixed interval and
// whenever Refresh is called, e.g. on hotplug.
type DecoderCollector struct {
	logger   logging.Logger
	find     func() ([]v4l2.DecoderInfo, error)
	interval time.Duration
	refresh  chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	lastMu sync.RWMutex
	last   []v4l2.DecoderInfo
}

// NewDecoderCollector creates a collector that scans every interval.
func NewDecoderCollector(interval time.Duration) *DecoderCollector {
	return &DecoderCollector{
		logger:   logging.GetLogger("metrics"),
		find:     v4l2.FindDecoders,
		interval: interval,
		refresh:  make(chan struct{}, 1),
	}
}

// Start begins collecting decoder metrics.
func (c *DecoderCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop stops the collector and waits for it to exit.
func (c *DecoderCollector) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Refresh asks for a rescan. It never blocks; requests made while a scan
// is pending are merged.
func (c *DecoderCollector) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Decoders returns the decoders found by the last successful scan.
func (c *DecoderCollector) Decoders() []v4l2.DecoderInfo {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	return slices.Clone(c.last)
}

func (c *DecoderCollector) run(ctx context.Context) {
	defer close(c.done)

	c.logger.Info("Starting decoder metrics collection", "interval", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		case <-c.refresh:
			c.collect()
		}
	}
}

func (c *DecoderCollector) collect() {
	decoders, err := c.find()
	if err != nil {
		c.logger.Warn("Failed to scan decoders", "error", err)
		return
	}

	var series []metrics.DecoderSeries
	for _, d := range decoders {
		for _, codec := range d.Codecs {
			series = append(series, metrics.DecoderSeries{
				Device: d.VideoPath,
				Media:  d.MediaPath,
				Driver: d.Driver,
				Codec:  codec,
			})
		}
	}
	metrics.SetDecoders(series)

	c.lastMu.Lock()
	c.last = decoders
	c.lastMu.Unlock()
	c.logger.Debug("Scanned decoders", "count", len(decoders))
}
