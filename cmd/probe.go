//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/smazurov/v4l2codecs/internal/config"
	"github.com/smazurov/v4l2codecs/internal/decoder"
	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// probeOptions are the probe settings. Flags win over V4L2CODECS_* env
// vars, which win over the config file.
type probeOptions struct {
	Config      string
	MediaDevice string `toml:"decoder.media_device" env:"MEDIA_DEVICE"`
	VideoDevice string `toml:"decoder.video_device" env:"VIDEO_DEVICE"`
	Codec       string `toml:"probe.codec" env:"PROBE_CODEC"`
	Width       uint32 `toml:"probe.width" env:"PROBE_WIDTH"`
	Height      uint32 `toml:"probe.height" env:"PROBE_HEIGHT"`
	Prefer      string `toml:"probe.prefer" env:"PROBE_PREFER"`
	Buffers     uint32 `toml:"probe.buffers" env:"PROBE_BUFFERS"`
	Requests    uint32 `toml:"probe.requests" env:"PROBE_REQUESTS"`
}

type formatReport struct {
	FourCC string `toml:"fourcc"`
	Name   string `toml:"name,omitempty"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	Planes int    `toml:"planes"`
}

type probeReport struct {
	VideoDevice   string        `toml:"video_device"`
	MediaDevice   string        `toml:"media_device"`
	InputFormats  []string      `toml:"input_formats"`
	Input         *formatReport `toml:"input,omitempty"`
	OutputFormats []string      `toml:"output_formats"`
	Output        *formatReport `toml:"output,omitempty"`
	InputBuffers  uint32        `toml:"input_buffers"`
	OutputBuffers uint32        `toml:"output_buffers"`
	OutputPlanes  int           `toml:"output_planes"`
	Requests      requestReport `toml:"requests"`
}

type requestReport struct {
	Cycled    uint32 `toml:"cycled"`
	Idle      int    `toml:"idle"`
	Destroyed int64  `toml:"destroyed"`
}

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Exercise a stateless decoder",
		Long: `Opens a decoder, lists its input formats, optionally sets one, reports the raw ` +
			`formats it can produce and the one selected, allocates and exports buffers, and ` +
			`cycles requests through the request pool. Without device flags the first ` +
			`decoder found is used.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			logger := logging.GetLogger("main")

			if err := config.LoadConfig(opts, cmd); err != nil {
				logger.Error("Failed to load config", "error", err)
				os.Exit(1)
			}

			if err := runProbe(opts, cmd.OutOrStdout()); err != nil {
				logger.Error("Probe failed", "error", err)
				os.Exit(1)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Config, "config", "c", "config.toml", "Path to configuration file")
	flags.StringVar(&opts.MediaDevice, "media-device", "", "Media controller node, e.g. /dev/media0")
	flags.StringVar(&opts.VideoDevice, "video-device", "", "Decoder video node, e.g. /dev/video1")
	flags.StringVar(&opts.Codec, "codec", "", "Input format to set, as FourCC (S264, S265, VP8F, VP9F, MG2S, AV1F)")
	flags.Uint32Var(&opts.Width, "width", 1920, "Coded width for --codec")
	flags.Uint32Var(&opts.Height, "height", 1080, "Coded height for --codec")
	flags.StringVar(&opts.Prefer, "prefer", "NV12", "Preferred raw output format")
	flags.Uint32Var(&opts.Buffers, "buffers", 4, "Buffers to allocate per queue")
	flags.Uint32Var(&opts.Requests, "requests", 8, "Requests to cycle through the pool")
	return cmd
}

func runProbe(opts *probeOptions, out io.Writer) error {
	if opts.VideoDevice == "" || opts.MediaDevice == "" {
		decoders, err := v4l2.FindDecoders()
		if err != nil {
			return fmt.Errorf("failed to scan decoders: %w", err)
		}
		info, ok := pickDecoder(decoders, opts.Codec)
		if !ok {
			return errors.New("no stateless decoder with a media controller found")
		}
		opts.VideoDevice, opts.MediaDevice = info.VideoPath, info.MediaPath
	}

	bus := events.New()
	var destroyed atomic.Int64
	unsubscribe := bus.Subscribe(func(events.RequestDestroyedEvent) {
		destroyed.Add(1)
	})
	defer unsubscribe()

	dec, err := decoder.New(decoder.Config{
		MediaDevice: opts.MediaDevice,
		VideoDevice: opts.VideoDevice,
	}, decoder.WithEventBus(bus))
	if err != nil {
		return err
	}
	if err := dec.Open(); err != nil {
		return err
	}
	defer dec.Close()

	report := probeReport{
		VideoDevice: opts.VideoDevice,
		MediaDevice: opts.MediaDevice,
	}

	for i := uint32(0); ; i++ {
		fourcc, ok, err := dec.EnumInputFormat(i)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		report.InputFormats = append(report.InputFormats, v4l2.FormatFourCC(fourcc))
	}

	if opts.Codec != "" {
		fourcc, err := v4l2.ParseFourCC(opts.Codec)
		if err != nil {
			return err
		}
		if err := dec.SetInputFormat(fourcc, opts.Width, opts.Height); err != nil {
			return err
		}
	}
	input, err := dec.InputFormat()
	if err != nil {
		return err
	}
	report.Input = newFormatReport(input.FourCC, "", input.Width, input.Height, len(input.Planes))

	report.OutputFormats, err = dec.OutputCapabilities()
	if err != nil {
		return err
	}
	if len(report.OutputFormats) > 0 {
		vi, err := dec.SelectOutputFormat(report.OutputFormats, opts.Prefer)
		if err != nil {
			return err
		}
		report.Output = newFormatReport(vi.FourCC, vi.Format, vi.Width, vi.Height, len(vi.Planes))
	}

	if err := probeBuffers(dec, opts.Buffers, &report); err != nil {
		return err
	}

	for range opts.Requests {
		req, err := dec.AllocRequest()
		if err != nil {
			return err
		}
		req.Release()
		report.Requests.Cycled++
	}
	report.Requests.Idle = dec.IdleRequests()
	report.Requests.Destroyed = destroyed.Load()

	return toml.NewEncoder(out).Encode(report)
}

// probeBuffers allocates both queues and exports the first output buffer.
func probeBuffers(dec *decoder.Decoder, count uint32, report *probeReport) error {
	if count == 0 {
		return nil
	}

	var err error
	if report.InputBuffers, err = dec.RequestBuffers(decoder.Input, count); err != nil {
		return err
	}
	if report.OutputBuffers, err = dec.RequestBuffers(decoder.Output, count); err != nil {
		return err
	}
	if report.OutputBuffers == 0 {
		return nil
	}

	planes, err := dec.ExportBuffer(decoder.Output, 0)
	if err != nil {
		return err
	}
	frame := decoder.NewFrame(0, planes)
	report.OutputPlanes = len(frame.Memories())
	frame.Unref()
	return nil
}

func newFormatReport(fourcc uint32, name string, width, height uint32, planes int) *formatReport {
	return &formatReport{
		FourCC: v4l2.FormatFourCC(fourcc),
		Name:   name,
		Width:  width,
		Height: height,
		Planes: planes,
	}
}

// pickDecoder returns the first decoder with a media controller node that
// supports codec, or any codec when codec is empty.
func pickDecoder(decoders []v4l2.DecoderInfo, codec string) (v4l2.DecoderInfo, bool) {
	for _, d := range decoders {
		if d.MediaPath == "" {
			continue
		}
		if codec == "" || slices.Contains(d.Codecs, codec) {
			return d, true
		}
	}
	return v4l2.DecoderInfo{}, false
}
