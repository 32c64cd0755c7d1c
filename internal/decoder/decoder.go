//go:build linux

package decoder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/internal/metrics"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// Direction selects one of the two queues of the decoder.
type Direction int

const (
	// Input is the compressed bitstream queue (V4L2 OUTPUT_MPLANE).
	Input Direction = iota
	// Output is the decoded picture queue (V4L2 CAPTURE_MPLANE).
	Output

	numDirections
)

func (dir Direction) String() string {
	switch dir {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("direction(%d)", int(dir))
	}
}

func (dir Direction) bufType() uint32 {
	if dir == Input {
		return v4l2.BufTypeVideoOutputMPlane
	}
	return v4l2.BufTypeVideoCaptureMPlane
}

func (dir Direction) valid() bool {
	return dir >= Input && dir < numDirections
}

var errAlreadyOpen = errors.New("already open")

// session is one Open..Close span. Requests remember the session they were
// allocated in; once it is closed they are orphaned.
type session struct {
	pool        *requestPool
	closed      atomic.Bool
	outstanding atomic.Int64
}

// Decoder is one stateless decoder: a media controller node, a video node
// and the request pool shared between them.
type Decoder struct {
	cfg     Config
	backend Backend
	logger  *slog.Logger
	bus     *events.Bus

	mu      sync.RWMutex
	media   MediaDevice
	video   VideoDevice
	session *session

	poolSize [numDirections]atomic.Uint32
}

// New creates a closed decoder for the given device pair.
func New(cfg Config, opts ...Option) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Decoder{
		cfg:     cfg,
		backend: kernelBackend{},
		logger:  logging.GetLogger("decoder"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("video_device", cfg.VideoDevice)

	return d, nil
}

// Config returns the device paths the decoder was created with.
func (d *Decoder) Config() Config {
	return d.cfg
}

// IsOpen reports whether both device nodes are open.
func (d *Decoder) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session != nil
}

// Open opens the media node read-only, then the video node non-blocking
// read-write. If the video node fails to open the media node is closed
// again.
func (d *Decoder) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		return opError(ErrDeviceOpen, "open", errAlreadyOpen)
	}

	mediaDev, err := d.backend.OpenMedia(d.cfg.MediaDevice)
	if err != nil {
		d.logger.Error("Failed to open media device", "path", d.cfg.MediaDevice, "error", err)
		return opError(ErrDeviceOpen, "open "+d.cfg.MediaDevice, err)
	}

	videoDev, err := d.backend.OpenVideo(d.cfg.VideoDevice)
	if err != nil {
		d.logger.Error("Failed to open video device", "path", d.cfg.VideoDevice, "error", err)
		if closeErr := mediaDev.Close(); closeErr != nil {
			d.logger.Warn("Failed to close media device", "path", d.cfg.MediaDevice, "error", closeErr)
		}
		return opError(ErrDeviceOpen, "open "+d.cfg.VideoDevice, err)
	}

	d.media = mediaDev
	d.video = videoDev
	d.session = &session{pool: newRequestPool()}

	metrics.SetRequestPoolIdle(d.cfg.VideoDevice, 0)
	d.publish(events.DecoderStateEvent{
		VideoDevice: d.cfg.VideoDevice,
		MediaDevice: d.cfg.MediaDevice,
		Opened:      true,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
	d.logger.Info("Decoder opened", "media_device", d.cfg.MediaDevice)
	return nil
}

// Close destroys every pooled request and closes both device nodes.
// Requests still held by callers become orphaned and are destroyed when
// released. Closing a closed decoder is a no-op.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}

	s := d.session
	s.closed.Store(true)
	for _, kreq := range s.pool.drain() {
		d.destroyRequest(kreq, reasonClosed)
	}
	if n := s.outstanding.Load(); n > 0 {
		d.logger.Warn("Closing decoder with outstanding requests", "count", n)
	}

	var errs []error
	if err := d.video.Close(); err != nil {
		errs = append(errs, opError(ErrIO, "close "+d.cfg.VideoDevice, err))
	}
	if err := d.media.Close(); err != nil {
		errs = append(errs, opError(ErrIO, "close "+d.cfg.MediaDevice, err))
	}

	d.video = nil
	d.media = nil
	d.session = nil
	for i := range d.poolSize {
		d.poolSize[i].Store(0)
	}

	metrics.SetRequestPoolIdle(d.cfg.VideoDevice, 0)
	d.publish(events.DecoderStateEvent{
		VideoDevice: d.cfg.VideoDevice,
		MediaDevice: d.cfg.MediaDevice,
		Timestamp:   time.Now().Format(time.RFC3339),
	})

	err := errors.Join(errs...)
	if err != nil {
		d.logger.Error("Failed to close decoder", "error", err)
	} else {
		d.logger.Info("Decoder closed")
	}
	return err
}

// StreamOn starts streaming on the queue of dir.
func (d *Decoder) StreamOn(dir Direction) error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}
	if !dir.valid() {
		return invalidDirection(dir)
	}
	if err := video.StreamOn(dir.bufType()); err != nil {
		return d.ioFailure("VIDIOC_STREAMON", err, "direction", dir)
	}
	return nil
}

// StreamOff stops streaming on the queue of dir. The driver returns every
// queued buffer of that queue.
func (d *Decoder) StreamOff(dir Direction) error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}
	if !dir.valid() {
		return invalidDirection(dir)
	}
	if err := video.StreamOff(dir.bufType()); err != nil {
		return d.ioFailure("VIDIOC_STREAMOFF", err, "direction", dir)
	}
	return nil
}

// Flush restarts both queues, dropping everything queued. StreamOff errors
// are ignored; the flush succeeds only if both queues stream again.
func (d *Decoder) Flush() error {
	_ = d.StreamOff(Input)
	_ = d.StreamOff(Output)

	if err := d.StreamOn(Input); err != nil {
		return err
	}
	return d.StreamOn(Output)
}

// IdleRequests returns the number of requests waiting in the pool.
func (d *Decoder) IdleRequests() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil {
		return 0
	}
	return d.session.pool.len()
}

// OutstandingRequests returns the number of requests allocated in the
// current session and not yet released.
func (d *Decoder) OutstandingRequests() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil {
		return 0
	}
	return d.session.outstanding.Load()
}

func (d *Decoder) videoDevice() (VideoDevice, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.video == nil {
		return nil, ErrNotOpen
	}
	return d.video, nil
}

// ioFailure logs a failed driver call and wraps it as an ErrIO OpError.
func (d *Decoder) ioFailure(op string, err error, args ...any) error {
	d.logger.Error(op+" failed", append(args, "error", err)...)
	return opError(ErrIO, op, err)
}

func (d *Decoder) publish(ev events.Event) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}

func invalidDirection(dir Direction) error {
	return fmt.Errorf("%w: unknown %s", ErrInvalidIndex, dir)
}
