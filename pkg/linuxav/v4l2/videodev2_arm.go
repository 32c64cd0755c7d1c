//go:build linux && arm && !arm64

package v4l2

import "unsafe"

// Compile-time struct size assertions for 32-bit ARM.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2PlanePixFormat{})]byte{}
	_ [192]byte = [unsafe.Sizeof(v4l2PixFormatMplane{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2Requestbuffers{})]byte{}
	_ [16]byte  = [unsafe.Sizeof(v4l2Timecode{})]byte{}
	_ [60]byte  = [unsafe.Sizeof(v4l2Plane{})]byte{}
	_ [80]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{} // 64-bit time_t userspace
	_ [64]byte  = [unsafe.Sizeof(v4l2Exportbuffer{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2ExtControl{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2ExtControls{})]byte{}
)

// IOCTL constants for 32-bit ARM
// Note: v4l2_format shrinks to 204 bytes (4-byte aligned union) and
// v4l2_buffer uses the time64 layout.
const (
	vidiocQuerycap  = 0x80685600
	vidiocEnumFmt   = 0xc0405602
	vidiocGFmt      = 0xc0cc5604
	vidiocSFmt      = 0xc0cc5605
	vidiocReqbufs   = 0xc0145608
	vidiocQuerybuf  = 0xc0505609
	vidiocQbuf      = 0xc050560f
	vidiocExpbuf    = 0xc0405610
	vidiocDqbuf     = 0xc0505611
	vidiocStreamon  = 0x40045612
	vidiocStreamoff = 0x40045613
	vidiocSExtCtrls = 0xc0185648
)

// v4l2Capability - size 104 bytes (same as 64-bit)
type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// v4l2Fmtdesc - size 64 bytes (same as 64-bit)
type v4l2Fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbusCode    uint32
	reserved    [3]uint32
}

// v4l2PlanePixFormat - size 20 bytes
type v4l2PlanePixFormat struct {
	sizeimage    uint32
	bytesperline uint32
	reserved     [6]uint16
}

// v4l2PixFormatMplane - size 192 bytes
type v4l2PixFormatMplane struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	colorspace   uint32
	planeFmt     [MaxPlanes]v4l2PlanePixFormat
	numPlanes    uint8
	flags        uint8
	ycbcrEnc     uint8
	quantization uint8
	xferFunc     uint8
	reserved     [7]uint8
}

// v4l2Format - size 204 bytes
type v4l2Format struct {
	typ   uint32
	pixMp v4l2PixFormatMplane
	_     [8]byte
}

// v4l2Requestbuffers - size 20 bytes
type v4l2Requestbuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// v4l2Timecode - size 16 bytes
type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

// v4l2Timeval - time64 struct timeval
type v4l2Timeval struct {
	sec  int64
	usec int64
}

// v4l2Plane - size 60 bytes (4-byte union m)
type v4l2Plane struct {
	bytesused  uint32
	length     uint32
	m          uint32
	dataOffset uint32
	reserved   [11]uint32
}

func (p *v4l2Plane) memOffset() uint32 { return p.m }

// v4l2Buffer - size 80 bytes
type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         uint32
	timestamp v4l2Timeval // offset 24
	timecode  v4l2Timecode
	sequence  uint32
	memory    uint32
	planes    *v4l2Plane // offset 64
	length    uint32
	reserved2 uint32
	requestFd int32
}

// v4l2Exportbuffer - size 64 bytes
type v4l2Exportbuffer struct {
	typ      uint32
	index    uint32
	plane    uint32
	flags    uint32
	fd       int32
	reserved [11]uint32
}

// v4l2ExtControl - size 20 bytes
type v4l2ExtControl struct {
	id        uint32
	size      uint32
	reserved2 uint32
	value     [8]byte
}

// v4l2ExtControls - size 24 bytes
type v4l2ExtControls struct {
	which     uint32
	count     uint32
	errorIdx  uint32
	requestFd int32
	reserved  uint32
	controls  *v4l2ExtControl
}
