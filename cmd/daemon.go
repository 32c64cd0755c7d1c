//go:build linux

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smazurov/v4l2codecs/internal/api"
	"github.com/smazurov/v4l2codecs/internal/config"
	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/internal/metrics"
	"github.com/smazurov/v4l2codecs/internal/metrics/collectors"
	"github.com/smazurov/v4l2codecs/internal/metrics/exporters"
	"github.com/smazurov/v4l2codecs/internal/nats"
	"github.com/smazurov/v4l2codecs/internal/systemd"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/hotplug"
)

// DaemonConfig configures the long-running daemon.
type DaemonConfig struct {
	ConfigPath   string
	MetricsAddr  string
	ScanInterval time.Duration
	Hotplug      bool

	// NatsAddress is an external NATS server to publish decoder events to.
	// NatsEmbedded starts a local server on NatsPort instead.
	NatsAddress  string
	NatsEmbedded bool
	NatsPort     int
}

// Daemon serves decoder and request metrics and the status API, follows
// decoder hotplug and reloads log levels when the config file changes.
type Daemon struct {
	cfg       DaemonConfig
	bus       *events.Bus
	logger    *slog.Logger
	collector *collectors.DecoderCollector
	server    *exporters.Server
	watcher   *config.Watcher[logging.Config]
	notifier  *systemd.Notifier
	natsSrv   *nats.Server
	publisher *nats.Publisher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDaemon wires the daemon components on bus.
func NewDaemon(cfg DaemonConfig, bus *events.Bus) *Daemon {
	logger := logging.GetLogger("main")
	collector := collectors.NewDecoderCollector(cfg.ScanInterval)
	router := api.NewServer(api.Options{
		Decoders:       collector,
		EventBus:       bus,
		MetricsHandler: exporters.HTTPHandler(),
	})
	return &Daemon{
		cfg:       cfg,
		bus:       bus,
		logger:    logger,
		collector: collector,
		server:    exporters.NewHandlerServer(cfg.MetricsAddr, router.Handler(), logging.GetLogger("api")),
		watcher:   config.NewConfigWatcher(cfg.ConfigPath, config.LoadLoggingConfig, logger),
		notifier:  systemd.NewNotifier(logger),
	}
}

// Run starts every component and blocks serving metrics until Stop is
// called or the server fails.
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	defer close(done)

	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()
	defer cancel()

	d.watcher.OnReload(func(cfg logging.Config) {
		logging.SetLevels(cfg)
		d.logger.Info("Log levels reloaded", "level", cfg.Level, "modules", cfg.Modules)
	})
	if err := d.watcher.Start(); err != nil {
		d.logger.Warn("Config watcher not started", "path", d.cfg.ConfigPath, "error", err)
	}

	l, err := net.Listen("tcp", d.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.cfg.MetricsAddr, err)
	}

	d.startNATS()
	defer d.stopNATS()

	g, ctx := errgroup.WithContext(ctx)

	if err := d.collector.Start(ctx); err != nil {
		l.Close()
		return err
	}

	if d.cfg.Hotplug {
		if err := d.startHotplug(ctx, g); err != nil {
			d.logger.Warn("Hotplug monitoring disabled", "error", err)
		}
	}

	g.Go(func() error {
		return d.server.Serve(ctx, l)
	})
	g.Go(func() error {
		d.notifier.RunWatchdog(ctx)
		return nil
	})

	d.notifier.Ready()
	d.notifier.Status("serving API and metrics on " + l.Addr().String())

	return g.Wait()
}

// Stop shuts the daemon down and waits for Run to return.
func (d *Daemon) Stop() {
	d.notifier.Stopping()

	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := d.watcher.Stop(); err != nil {
		d.logger.Warn("Error stopping config watcher", "error", err)
	}
	if err := d.collector.Stop(); err != nil {
		d.logger.Warn("Error stopping decoder collector", "error", err)
	}
	if done != nil {
		<-done
	}
}

// startHotplug runs the uevent monitor and its forwarder in g. A failing
// monitor is logged and does not stop the daemon.
func (d *Daemon) startHotplug(ctx context.Context, g *errgroup.Group) error {
	monitor, err := hotplug.NewDecoderMonitor()
	if err != nil {
		return err
	}

	hlog := logging.GetLogger("hotplug")
	unsubscribe := d.bus.Subscribe(func(ev events.DecoderDeviceEvent) {
		hlog.Info("Decoder device event", "action", ev.Action, "subsystem", ev.Subsystem, "node", ev.Node)
	})

	ch := make(chan hotplug.Event, 16)
	g.Go(func() error {
		defer monitor.Close()
		if runErr := monitor.Run(ctx, ch); runErr != nil && !errors.Is(runErr, context.Canceled) {
			hlog.Error("Hotplug monitor failed", "error", runErr)
		}
		return nil
	})
	g.Go(func() error {
		defer unsubscribe()
		forwardHotplug(ch, d.bus, d.collector.Refresh)
		return nil
	})

	hlog.Info("Hotplug monitoring started")
	return nil
}

// startNATS starts the embedded server if configured and connects the
// event publisher. NATS failures are logged; the daemon runs without it.
func (d *Daemon) startNATS() {
	url := d.cfg.NatsAddress
	if d.cfg.NatsEmbedded {
		srv := nats.NewServer(nats.ServerOptions{Port: d.cfg.NatsPort, Logger: d.logger})
		if err := srv.Start(); err != nil {
			d.logger.Warn("Embedded NATS server not started", "error", err)
			return
		}
		d.natsSrv = srv
		url = srv.ClientURL()
	}
	if url == "" {
		return
	}

	pub := nats.NewPublisher(url, d.bus, d.logger)
	if err := pub.Start(); err != nil {
		d.logger.Warn("NATS publishing disabled", "url", url, "error", err)
		return
	}
	d.publisher = pub
}

func (d *Daemon) stopNATS() {
	if d.publisher != nil {
		d.publisher.Stop()
		d.publisher = nil
	}
	if d.natsSrv != nil {
		d.natsSrv.Stop()
		d.natsSrv = nil
	}
}

// forwardHotplug publishes every uevent on bus and triggers a rescan for
// additions and removals, until events is closed.
func forwardHotplug(ch <-chan hotplug.Event, bus *events.Bus, rescan func()) {
	for ev := range ch {
		metrics.RecordHotplugEvent(ev.Subsystem, ev.Action)
		bus.Publish(events.DecoderDeviceEvent{
			Action:    ev.Action,
			Subsystem: ev.Subsystem,
			Node:      ev.Node(),
			KObj:      ev.KObj,
			Timestamp: time.Now().Format(time.RFC3339),
		})
		if ev.Action == hotplug.ActionAdd || ev.Action == hotplug.ActionRemove {
			rescan()
		}
	}
}
