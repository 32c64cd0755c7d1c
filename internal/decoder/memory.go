//go:build linux

package decoder

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// PlaneExport describes one exported plane of a driver buffer. The caller
// owns FD.
type PlaneExport struct {
	FD     int
	Size   uint32
	Offset uint32
}

// Memory is a reference-counted handle to the memory of one plane of a
// driver buffer.
type Memory interface {
	// Index is the driver buffer index the memory belongs to.
	Index() uint32
	// Size is the number of bytes in the plane.
	Size() uint32
	Ref()
	Unref()
}

// OutputBuffer is a raw frame: one Memory per plane, all sharing one driver
// buffer index.
type OutputBuffer interface {
	Index() uint32
	Memories() []Memory
}

// DMABuf is a Memory backed by an exported DMA-BUF descriptor. The
// descriptor is closed when the last reference is dropped.
type DMABuf struct {
	index  uint32
	plane  PlaneExport
	refs   atomic.Int32
	closed atomic.Bool
}

// NewDMABuf wraps an exported plane of buffer index. The returned memory
// holds one reference.
func NewDMABuf(index uint32, plane PlaneExport) *DMABuf {
	b := &DMABuf{index: index, plane: plane}
	b.refs.Store(1)
	return b
}

// Index implements Memory.
func (b *DMABuf) Index() uint32 { return b.index }

// Size implements Memory.
func (b *DMABuf) Size() uint32 { return b.plane.Size }

// FD returns the DMA-BUF descriptor.
func (b *DMABuf) FD() int { return b.plane.FD }

// Offset returns the offset of the plane data within the descriptor.
func (b *DMABuf) Offset() uint32 { return b.plane.Offset }

// Refs returns the current reference count.
func (b *DMABuf) Refs() int32 { return b.refs.Load() }

// Ref implements Memory.
func (b *DMABuf) Ref() { b.refs.Add(1) }

// Unref implements Memory.
func (b *DMABuf) Unref() {
	if b.refs.Add(-1) == 0 && b.closed.CompareAndSwap(false, true) {
		unix.Close(b.plane.FD)
	}
}

// Frame is an OutputBuffer made of exported planes.
type Frame struct {
	index  uint32
	planes []Memory
}

// NewFrame wraps the exported planes of output buffer index, one DMABuf per
// plane.
func NewFrame(index uint32, planes []PlaneExport) *Frame {
	f := &Frame{index: index, planes: make([]Memory, len(planes))}
	for i, p := range planes {
		f.planes[i] = NewDMABuf(index, p)
	}
	return f
}

// Index implements OutputBuffer.
func (f *Frame) Index() uint32 { return f.index }

// Memories implements OutputBuffer.
func (f *Frame) Memories() []Memory { return f.planes }

// Unref drops one reference on every plane.
func (f *Frame) Unref() {
	for _, m := range f.planes {
		m.Unref()
	}
}
