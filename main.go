//go:build linux

package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/v4l2codecs/cmd"
	"github.com/smazurov/v4l2codecs/internal/config"
	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Daemon settings
	MetricsAddr  string `help:"Address to serve the status API and Prometheus metrics on" default:":9464" toml:"daemon.metrics_addr" env:"METRICS_ADDR"`
	ScanInterval string `help:"Interval between decoder scans" default:"30s" toml:"daemon.scan_interval" env:"SCAN_INTERVAL"`
	Hotplug      bool   `help:"Follow decoder hotplug events" default:"true" toml:"daemon.hotplug" env:"HOTPLUG"`

	// NATS settings
	NatsAddress  string `help:"NATS server URL to publish decoder events to" toml:"nats.address" env:"NATS_ADDRESS"`
	NatsEmbedded bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsPort     int    `help:"Port of the embedded NATS server" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDecoder string `help:"Decoder logging level" default:"info" toml:"logging.modules.decoder" env:"LOGGING_DECODER"`
	LoggingHotplug string `help:"Hotplug logging level" default:"info" toml:"logging.modules.hotplug" env:"LOGGING_HOTPLUG"`
	LoggingMetrics string `help:"Metrics logging level" default:"info" toml:"logging.modules.metrics" env:"LOGGING_METRICS"`
	LoggingApi     string `help:"API logging level" default:"info" toml:"logging.modules.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"decoder": opts.LoggingDecoder,
				"hotplug": opts.LoggingHotplug,
				"metrics": opts.LoggingMetrics,
				"api":     opts.LoggingApi,
			},
		})
		logger := logging.GetLogger("main")

		scanInterval, err := time.ParseDuration(opts.ScanInterval)
		if err != nil || scanInterval <= 0 {
			logger.Warn("Invalid scan interval, using 30s", "value", opts.ScanInterval)
			scanInterval = 30 * time.Second
		}

		daemon := cmd.NewDaemon(cmd.DaemonConfig{
			ConfigPath:   opts.Config,
			MetricsAddr:  opts.MetricsAddr,
			ScanInterval: scanInterval,
			Hotplug:      opts.Hotplug,
			NatsAddress:  opts.NatsAddress,
			NatsEmbedded: opts.NatsEmbedded,
			NatsPort:     opts.NatsPort,
		}, events.New())

		hooks.OnStart(func() {
			logger.Info("Starting v4l2codecs", "version", version.Get().String(), "metrics_addr", opts.MetricsAddr)
			if runErr := daemon.Run(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
				logger.Error("Daemon failed", "error", runErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			daemon.Stop()
		})
	})

	cli.Root().Use = "v4l2codecs"
	cli.Root().Short = "Stateless V4L2 decoder toolkit"
	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
