//go:build linux

package decoder

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/v4l2codecs/internal/events"
)

// Config holds the device node pair of one decoder. It is copied by New and
// never changes afterwards.
type Config struct {
	MediaDevice string `toml:"media_device" env:"MEDIA_DEVICE"`
	VideoDevice string `toml:"video_device" env:"VIDEO_DEVICE"`
}

// Validate checks that both device paths are set.
func (c Config) Validate() error {
	if c.MediaDevice == "" {
		return fmt.Errorf("media device path is required")
	}
	if c.VideoDevice == "" {
		return fmt.Errorf("video device path is required")
	}
	return nil
}

// Option customizes a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBackend replaces the kernel backend, mainly for tests.
func WithBackend(b Backend) Option {
	return func(d *Decoder) {
		if b != nil {
			d.backend = b
		}
	}
}

// WithEventBus publishes session and request teardown events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(d *Decoder) {
		d.bus = bus
	}
}
