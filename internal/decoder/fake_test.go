//go:build linux

package decoder

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// fakeBackend hands out one fakeMedia and one fakeVideo.
type fakeBackend struct {
	media    *fakeMedia
	video    *fakeVideo
	mediaErr error
	videoErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		media: &fakeMedia{nextFD: 100},
		video: newFakeVideo(),
	}
}

func (b *fakeBackend) OpenMedia(string) (MediaDevice, error) {
	if b.mediaErr != nil {
		return nil, b.mediaErr
	}
	b.media.opens.Add(1)
	return b.media, nil
}

func (b *fakeBackend) OpenVideo(string) (VideoDevice, error) {
	if b.videoErr != nil {
		return nil, b.videoErr
	}
	b.video.opens.Add(1)
	return b.video, nil
}

type fakeMedia struct {
	mu        sync.Mutex
	nextFD    int
	allocErr  error
	queueErr  error
	reinitErr error
	requests  []*fakeRequest
	opens     atomic.Int32
	closes    atomic.Int32
}

func (m *fakeMedia) AllocRequest() (KernelRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allocErr != nil {
		return nil, m.allocErr
	}
	r := &fakeRequest{media: m, fd: m.nextFD}
	m.nextFD++
	m.requests = append(m.requests, r)
	return r, nil
}

func (m *fakeMedia) Close() error {
	m.closes.Add(1)
	return nil
}

func (m *fakeMedia) allocated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *fakeMedia) destroyed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.closes.Load() > 0 {
			n++
		}
	}
	return n
}

type fakeRequest struct {
	media   *fakeMedia
	fd      int
	queues  atomic.Int32
	reinits atomic.Int32
	closes  atomic.Int32

	mu       sync.Mutex
	ready    bool
	timeouts []time.Duration
}

func (r *fakeRequest) FD() int { return r.fd }

func (r *fakeRequest) Queue() error {
	r.media.mu.Lock()
	err := r.media.queueErr
	r.media.mu.Unlock()
	if err != nil {
		return err
	}
	r.queues.Add(1)
	return nil
}

func (r *fakeRequest) Reinit() error {
	r.media.mu.Lock()
	err := r.media.reinitErr
	r.media.mu.Unlock()
	if err != nil {
		return err
	}
	r.reinits.Add(1)
	return nil
}

func (r *fakeRequest) Wait(timeout time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts = append(r.timeouts, timeout)
	return r.ready, nil
}

func (r *fakeRequest) complete() {
	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()
}

func (r *fakeRequest) Close() error {
	r.closes.Add(1)
	return nil
}

// fakeVideo models an M2M decoder: buffers queued on a queue come back in
// order on dequeue, with timestamps normalized the way the kernel does.
type fakeVideo struct {
	mu    sync.Mutex
	calls []string

	formats map[uint32][]uint32 // enumerable pixel formats per queue
	enumErr map[uint32]error    // returned once the list is exhausted
	current map[uint32]v4l2.PixFormat
	coerce  func(pf v4l2.PixFormat) v4l2.PixFormat
	setErr  error
	getErr  error

	maxBuffers   uint32
	planes       []v4l2.Plane
	exportFailAt int
	exported     []int

	queueErr     error
	queued       map[uint32][]v4l2.Buffer
	streamOnErr  map[uint32]error
	streamOffErr error
	streaming    map[uint32]bool

	ctrlErr    error
	ctrlErrIdx uint32
	ctrlWhich  uint32
	ctrlFD     int
	ctrls      []v4l2.ExtControl

	opens  atomic.Int32
	closes atomic.Int32
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{
		formats: map[uint32][]uint32{
			v4l2.BufTypeVideoOutputMPlane:  {v4l2.PixFmtH264Slice, v4l2.PixFmtVP8Frame},
			v4l2.BufTypeVideoCaptureMPlane: {v4l2.PixFmtNV12},
		},
		enumErr: map[uint32]error{},
		current: map[uint32]v4l2.PixFormat{
			v4l2.BufTypeVideoCaptureMPlane: {
				PixelFormat: v4l2.PixFmtNV12,
				Width:       1920,
				Height:      1088,
				Planes:      []v4l2.PlaneFormat{{SizeImage: 1920 * 1088 * 3 / 2, BytesPerLine: 1920}},
			},
		},
		maxBuffers:   32,
		planes:       []v4l2.Plane{{Length: 4096}},
		exportFailAt: -1,
		queued:       map[uint32][]v4l2.Buffer{},
		streamOnErr:  map[uint32]error{},
		streaming:    map[uint32]bool{},
	}
}

func (f *fakeVideo) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeVideo) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeVideo) EnumFormat(bufType, index uint32) (v4l2.FormatInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ENUM_FMT")
	list := f.formats[bufType]
	if int(index) >= len(list) {
		if err := f.enumErr[bufType]; err != nil {
			return v4l2.FormatInfo{}, err
		}
		return v4l2.FormatInfo{}, unix.EINVAL
	}
	return v4l2.FormatInfo{PixelFormat: list[index]}, nil
}

func (f *fakeVideo) GetFormat(bufType uint32) (v4l2.PixFormat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("G_FMT")
	if f.getErr != nil {
		return v4l2.PixFormat{}, f.getErr
	}
	return f.current[bufType], nil
}

func (f *fakeVideo) SetFormat(bufType uint32, pf v4l2.PixFormat) (v4l2.PixFormat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("S_FMT")
	if f.setErr != nil {
		return v4l2.PixFormat{}, f.setErr
	}
	if f.coerce != nil {
		pf = f.coerce(pf)
	}
	f.current[bufType] = pf
	return pf, nil
}

func (f *fakeVideo) RequestBuffers(_, _, count uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("REQBUFS")
	return min(count, f.maxBuffers), nil
}

func (f *fakeVideo) QueryBuffer(_, _, _ uint32) ([]v4l2.Plane, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QUERYBUF")
	return append([]v4l2.Plane(nil), f.planes...), nil
}

func (f *fakeVideo) ExportBuffer(_, _, plane, _ uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EXPBUF")
	if int(plane) == f.exportFailAt {
		return -1, unix.ENOMEM
	}
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	f.exported = append(f.exported, fd)
	return fd, nil
}

func (f *fakeVideo) QueueBuffer(b *v4l2.Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QBUF")
	if f.queueErr != nil {
		return f.queueErr
	}
	buf := *b
	buf.Planes = append([]v4l2.Plane(nil), b.Planes...)
	f.queued[b.Type] = append(f.queued[b.Type], buf)
	return nil
}

func (f *fakeVideo) DequeueBuffer(bufType, _ uint32) (v4l2.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DQBUF")
	q := f.queued[bufType]
	if len(q) == 0 {
		return v4l2.Buffer{}, unix.EAGAIN
	}
	buf := q[0]
	f.queued[bufType] = q[1:]

	ns := buf.Timestamp.Sec*1e9 + buf.Timestamp.Usec*1e3
	buf.Timestamp = v4l2.Timeval{Sec: ns / 1e9, Usec: (ns % 1e9) / 1e3}
	return buf, nil
}

func (f *fakeVideo) pendingBuffers(bufType uint32) []v4l2.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]v4l2.Buffer(nil), f.queued[bufType]...)
}

func (f *fakeVideo) StreamOn(bufType uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("STREAMON " + queueName(bufType))
	if err := f.streamOnErr[bufType]; err != nil {
		return err
	}
	f.streaming[bufType] = true
	return nil
}

func (f *fakeVideo) StreamOff(bufType uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("STREAMOFF " + queueName(bufType))
	if f.streamOffErr != nil {
		return f.streamOffErr
	}
	f.streaming[bufType] = false
	delete(f.queued, bufType)
	return nil
}

func (f *fakeVideo) SetExtControls(which uint32, requestFD int, ctrls []v4l2.ExtControl) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("S_EXT_CTRLS")
	f.ctrlWhich = which
	f.ctrlFD = requestFD
	f.ctrls = append([]v4l2.ExtControl(nil), ctrls...)
	if f.ctrlErr != nil {
		return f.ctrlErrIdx, f.ctrlErr
	}
	return 0, nil
}

func (f *fakeVideo) Close() error {
	f.closes.Add(1)
	return nil
}

func queueName(bufType uint32) string {
	if bufType == v4l2.BufTypeVideoOutputMPlane {
		return "input"
	}
	return "output"
}

// countingMemory is a Memory that records reference changes.
type countingMemory struct {
	index  uint32
	size   uint32
	refs   atomic.Int32
	unrefs atomic.Int32
}

func newCountingMemory(index, size uint32) *countingMemory {
	m := &countingMemory{index: index, size: size}
	m.refs.Store(1)
	return m
}

func (m *countingMemory) Index() uint32 { return m.index }
func (m *countingMemory) Size() uint32  { return m.size }
func (m *countingMemory) Ref()          { m.refs.Add(1) }
func (m *countingMemory) Unref() {
	m.refs.Add(-1)
	m.unrefs.Add(1)
}

type testBuffer struct {
	index uint32
	mems  []Memory
}

func (b testBuffer) Index() uint32      { return b.index }
func (b testBuffer) Memories() []Memory { return b.mems }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDecoder returns an open decoder on a fake backend. Device paths
// are unique per test so metric series do not collide.
func newTestDecoder(t *testing.T, opts ...Option) (*Decoder, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	cfg := Config{
		MediaDevice: "/dev/media-" + name,
		VideoDevice: "/dev/video-" + name,
	}
	opts = append([]Option{WithBackend(backend), WithLogger(discardLogger())}, opts...)
	dec, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := dec.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = dec.Close() })
	return dec, backend
}
