//go:build linux

package v4l2

import (
	"runtime"
	"unsafe"
)

// RequestBuffers allocates count buffers on the queue of bufType and returns
// the number the driver actually allocated. A count of 0 frees the queue.
func (d *Device) RequestBuffers(bufType, memory, count uint32) (uint32, error) {
	reqbufs := v4l2Requestbuffers{
		count:  count,
		typ:    bufType,
		memory: memory,
	}
	if err := ioctl(d.fd, vidiocReqbufs, unsafe.Pointer(&reqbufs)); err != nil {
		return 0, err
	}
	return reqbufs.count, nil
}

// QueryBuffer returns the plane layout of buffer index.
func (d *Device) QueryBuffer(bufType, memory, index uint32) ([]Plane, error) {
	var planes [MaxPlanes]v4l2Plane
	buf := v4l2Buffer{
		index:  index,
		typ:    bufType,
		memory: memory,
		length: MaxPlanes,
		planes: &planes[0],
	}
	if err := ioctl(d.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
		return nil, err
	}
	return planesFromKernel(planes[:], buf.length), nil
}

// ExportBuffer exports one plane of buffer index as a DMA-BUF file
// descriptor. Ownership of the descriptor passes to the caller.
func (d *Device) ExportBuffer(bufType, index, plane, flags uint32) (int, error) {
	expbuf := v4l2Exportbuffer{
		typ:   bufType,
		index: index,
		plane: plane,
		flags: flags,
	}
	if err := ioctl(d.fd, vidiocExpbuf, unsafe.Pointer(&expbuf)); err != nil {
		return -1, err
	}
	return int(expbuf.fd), nil
}

// QueueBuffer issues VIDIOC_QBUF.
func (d *Device) QueueBuffer(b *Buffer) error {
	var planes [MaxPlanes]v4l2Plane
	n := len(b.Planes)
	if n > MaxPlanes {
		n = MaxPlanes
	}
	for i := 0; i < n; i++ {
		planes[i].bytesused = b.Planes[i].BytesUsed
		planes[i].length = b.Planes[i].Length
		planes[i].dataOffset = b.Planes[i].DataOffset
	}

	buf := v4l2Buffer{
		index:  b.Index,
		typ:    b.Type,
		flags:  b.Flags,
		memory: b.Memory,
		length: uint32(n),
		planes: &planes[0],
		timestamp: v4l2Timeval{
			sec:  b.Timestamp.Sec,
			usec: b.Timestamp.Usec,
		},
	}
	if b.Flags&BufFlagRequestFD != 0 {
		buf.requestFd = int32(b.RequestFD)
	}

	err := ioctl(d.fd, vidiocQbuf, unsafe.Pointer(&buf))
	runtime.KeepAlive(&planes)
	return err
}

// DequeueBuffer issues VIDIOC_DQBUF. On a non-blocking device an empty queue
// is reported as EAGAIN.
func (d *Device) DequeueBuffer(bufType, memory uint32) (Buffer, error) {
	var planes [MaxPlanes]v4l2Plane
	buf := v4l2Buffer{
		typ:    bufType,
		memory: memory,
		length: MaxPlanes,
		planes: &planes[0],
	}
	if err := ioctl(d.fd, vidiocDqbuf, unsafe.Pointer(&buf)); err != nil {
		return Buffer{}, err
	}
	return Buffer{
		Type:     buf.typ,
		Memory:   buf.memory,
		Index:    buf.index,
		Flags:    buf.flags,
		Sequence: buf.sequence,
		Timestamp: Timeval{
			Sec:  buf.timestamp.sec,
			Usec: buf.timestamp.usec,
		},
		Planes: planesFromKernel(planes[:], buf.length),
	}, nil
}

func planesFromKernel(planes []v4l2Plane, n uint32) []Plane {
	if int(n) > len(planes) {
		n = uint32(len(planes))
	}
	out := make([]Plane, n)
	for i := range out {
		p := &planes[i]
		out[i] = Plane{
			BytesUsed:  p.bytesused,
			Length:     p.length,
			MemOffset:  p.memOffset(),
			DataOffset: p.dataOffset,
		}
	}
	return out
}
