//go:build linux

package decoder

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// Frame numbers travel in the buffer timestamp. The kernel stores
// timestamps as nanoseconds and normalizes tv_usec on the way back, so the
// number is split across tv_sec and tv_usec to survive values >= 1e6.
const usecPerSec = 1000000

func frameTimestamp(frameNum uint32) v4l2.Timeval {
	return v4l2.Timeval{
		Sec:  int64(frameNum / usecPerSec),
		Usec: int64(frameNum % usecPerSec),
	}
}

func frameFromTimestamp(tv v4l2.Timeval) uint32 {
	return uint32(tv.Sec*usecPerSec + tv.Usec)
}

// FrameReference returns the kernel timestamp, in nanoseconds, of the
// buffers queued with frameNum. Stateless codec controls reference
// previously decoded pictures by this value.
func FrameReference(frameNum uint32) uint64 {
	return uint64(frameNum) * 1000
}

// RequestBuffers allocates count MMAP buffers on the queue of dir and
// returns how many the driver created. A count of 0 frees the pool.
func (d *Decoder) RequestBuffers(dir Direction, count uint32) (uint32, error) {
	video, err := d.videoDevice()
	if err != nil {
		return 0, err
	}
	if !dir.valid() {
		return 0, invalidDirection(dir)
	}

	d.logger.Debug("Requesting buffers", "direction", dir, "count", count)

	actual, err := video.RequestBuffers(dir.bufType(), v4l2.MemoryMMAP, count)
	if err != nil {
		return 0, d.ioFailure("VIDIOC_REQBUFS", err, "direction", dir, "count", count)
	}
	d.poolSize[dir].Store(actual)
	return actual, nil
}

// PoolSize returns the number of buffers allocated on the queue of dir.
func (d *Decoder) PoolSize(dir Direction) uint32 {
	if !dir.valid() {
		return 0
	}
	return d.poolSize[dir].Load()
}

func (d *Decoder) checkIndex(dir Direction, index uint32) error {
	if !dir.valid() {
		return invalidDirection(dir)
	}
	if size := d.poolSize[dir].Load(); index >= size {
		return fmt.Errorf("%w: %s buffer %d, pool size %d", ErrInvalidIndex, dir, index, size)
	}
	return nil
}

// ExportBuffer exports every plane of buffer index as a DMA-BUF. The caller
// owns the returned descriptors. If any plane fails, the descriptors
// already exported by this call are closed.
func (d *Decoder) ExportBuffer(dir Direction, index uint32) ([]PlaneExport, error) {
	video, err := d.videoDevice()
	if err != nil {
		return nil, err
	}
	if err := d.checkIndex(dir, index); err != nil {
		return nil, err
	}

	planes, err := video.QueryBuffer(dir.bufType(), v4l2.MemoryMMAP, index)
	if err != nil {
		return nil, d.ioFailure("VIDIOC_QUERYBUF", err, "direction", dir, "index", index)
	}

	exports := make([]PlaneExport, 0, len(planes))
	for i, plane := range planes {
		fd, err := video.ExportBuffer(dir.bufType(), index, uint32(i), unix.O_CLOEXEC|unix.O_RDWR)
		if err != nil {
			for j := len(exports) - 1; j >= 0; j-- {
				unix.Close(exports[j].FD)
			}
			return nil, d.ioFailure("VIDIOC_EXPBUF", err, "direction", dir, "index", index, "plane", i)
		}
		exports = append(exports, PlaneExport{
			FD:     fd,
			Size:   plane.Length,
			Offset: plane.DataOffset,
		})
	}
	return exports, nil
}

// QueueInputBuffer queues bitstream buffer mem into req. The driver holds
// the buffer until req is submitted and decoded; req keeps a reference to
// mem until MarkDone or Release.
func (d *Decoder) QueueInputBuffer(req *Request, mem Memory, frameNum, bytesUsed uint32) error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}
	if err := d.checkIndex(Input, mem.Index()); err != nil {
		return err
	}
	if err := req.checkAttach(d); err != nil {
		return err
	}

	buf := &v4l2.Buffer{
		Type:      Input.bufType(),
		Memory:    v4l2.MemoryMMAP,
		Index:     mem.Index(),
		Flags:     v4l2.BufFlagRequestFD,
		RequestFD: req.FD(),
		Timestamp: frameTimestamp(frameNum),
		Planes:    []v4l2.Plane{{BytesUsed: bytesUsed}},
	}
	if err := video.QueueBuffer(buf); err != nil {
		return d.ioFailure("VIDIOC_QBUF", err, "direction", Input, "index", buf.Index, "frame", frameNum)
	}

	return req.AttachBitstream(mem)
}

// QueueOutputBuffer queues a picture buffer, one plane per memory.
func (d *Decoder) QueueOutputBuffer(buf OutputBuffer, frameNum uint32) error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}
	if err := d.checkIndex(Output, buf.Index()); err != nil {
		return err
	}

	mems := buf.Memories()
	if len(mems) == 0 || len(mems) > v4l2.MaxPlanes {
		return fmt.Errorf("%w: %d planes", ErrInvalidIndex, len(mems))
	}
	planes := make([]v4l2.Plane, len(mems))
	for i, m := range mems {
		planes[i].BytesUsed = m.Size()
	}

	vbuf := &v4l2.Buffer{
		Type:      Output.bufType(),
		Memory:    v4l2.MemoryMMAP,
		Index:     buf.Index(),
		Timestamp: frameTimestamp(frameNum),
		Planes:    planes,
	}
	if err := video.QueueBuffer(vbuf); err != nil {
		return d.ioFailure("VIDIOC_QBUF", err, "direction", Output, "index", vbuf.Index, "frame", frameNum)
	}
	return nil
}

// DequeueInput dequeues one consumed bitstream buffer. An empty queue
// fails with EAGAIN.
func (d *Decoder) DequeueInput() error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}
	if _, err := video.DequeueBuffer(Input.bufType(), v4l2.MemoryMMAP); err != nil {
		return d.ioFailure("VIDIOC_DQBUF", err, "direction", Input)
	}
	return nil
}

// DequeueOutput dequeues one decoded picture and returns the frame number
// it was queued with. An empty queue fails with EAGAIN.
func (d *Decoder) DequeueOutput() (uint32, error) {
	video, err := d.videoDevice()
	if err != nil {
		return 0, err
	}
	buf, err := video.DequeueBuffer(Output.bufType(), v4l2.MemoryMMAP)
	if err != nil {
		return 0, d.ioFailure("VIDIOC_DQBUF", err, "direction", Output)
	}
	return frameFromTimestamp(buf.Timestamp), nil
}
