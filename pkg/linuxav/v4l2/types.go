//go:build linux

package v4l2

// DecoderInfo describes a stateless decoder found on the system.
type DecoderInfo struct {
	VideoPath string `json:"video_device" toml:"video_device" yaml:"video_device"`
	// Empty when the driver registers no media controller
	MediaPath string `json:"media_device,omitempty" toml:"media_device,omitempty" yaml:"media_device,omitempty"`
	Driver    string `json:"driver" toml:"driver" yaml:"driver"`
	Card      string `json:"card" toml:"card" yaml:"card"`
	// FourCC names of the supported compressed formats
	Codecs []string `json:"codecs" toml:"codecs" yaml:"codecs"`
}

// Capability is the result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	Version uint32
	Caps    uint32 // Effective capabilities (device caps when reported)
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
	Compressed  bool
}

// PlaneFormat is the per-plane layout of a multi-planar format.
type PlaneFormat struct {
	SizeImage    uint32
	BytesPerLine uint32
}

// PixFormat is a multi-planar pixel format as exchanged with VIDIOC_G_FMT and
// VIDIOC_S_FMT.
type PixFormat struct {
	PixelFormat uint32
	Width       uint32
	Height      uint32
	Field       uint32
	Colorspace  uint32
	Planes      []PlaneFormat
}

// Plane is one memory plane of a queued or queried buffer.
type Plane struct {
	BytesUsed  uint32
	Length     uint32
	MemOffset  uint32
	DataOffset uint32
}

// Timeval mirrors struct timeval in struct v4l2_buffer.
type Timeval struct {
	Sec  int64
	Usec int64
}

// Buffer is a multi-planar buffer for VIDIOC_QBUF and VIDIOC_DQBUF.
type Buffer struct {
	Type      uint32
	Memory    uint32
	Index     uint32
	Flags     uint32
	Sequence  uint32
	Timestamp Timeval
	RequestFD int // Only used with BufFlagRequestFD
	Planes    []Plane
}

// ExtControl is one entry of a VIDIOC_S_EXT_CTRLS call. Compound controls
// carry their payload in Payload; simple controls use Value.
type ExtControl struct {
	ID      uint32
	Value   int64
	Payload []byte
}

// MaxPlanes is VIDEO_MAX_PLANES.
const MaxPlanes = 8

// Capability flags.
const (
	CapVideoM2MMPlane = 0x00004000
	CapStreaming      = 0x04000000
	CapDeviceCaps     = 0x80000000
)

// Format flags.
const (
	FmtFlagCompressed = 0x0001
	FmtFlagEmulated   = 0x0002
)

// Buffer types.
const (
	BufTypeVideoCaptureMPlane = 9
	BufTypeVideoOutputMPlane  = 10
)

// Memory types.
const (
	MemoryMMAP   = 1
	MemoryDMABUF = 4
)

// Buffer flags.
const (
	BufFlagMapped    = 0x00000001
	BufFlagQueued    = 0x00000002
	BufFlagDone      = 0x00000004
	BufFlagError     = 0x00000040
	BufFlagRequestFD = 0x00800000
)

// Field order.
const (
	FieldAny  = 0
	FieldNone = 1
)

// CtrlWhichRequestVal scopes extended controls to a media request.
const CtrlWhichRequestVal = 0x0f010000

// Stateless codec control IDs.
const (
	CIDStatelessBase       = 0x00a40900
	CIDH264DecodeMode      = CIDStatelessBase + 0
	CIDH264StartCode       = CIDStatelessBase + 1
	CIDH264SPS             = CIDStatelessBase + 2
	CIDH264PPS             = CIDStatelessBase + 3
	CIDH264ScalingMatrix   = CIDStatelessBase + 4
	CIDH264PredWeights     = CIDStatelessBase + 5
	CIDH264SliceParams     = CIDStatelessBase + 6
	CIDH264DecodeParams    = CIDStatelessBase + 7
	CIDVP8Frame            = CIDStatelessBase + 200
	CIDMPEG2Sequence       = CIDStatelessBase + 220
	CIDMPEG2Picture        = CIDStatelessBase + 221
	CIDMPEG2Quantisation   = CIDStatelessBase + 222
	CIDVP9Frame            = CIDStatelessBase + 300
	CIDVP9CompressedHeader = CIDStatelessBase + 301
)

// Stateless (slice-based) compressed formats.
var (
	PixFmtH264Slice  = FourCC('S', '2', '6', '4')
	PixFmtHEVCSlice  = FourCC('S', '2', '6', '5')
	PixFmtVP8Frame   = FourCC('V', 'P', '8', 'F')
	PixFmtVP9Frame   = FourCC('V', 'P', '9', 'F')
	PixFmtMPEG2Slice = FourCC('M', 'G', '2', 'S')
	PixFmtAV1Frame   = FourCC('A', 'V', '1', 'F')
)

// Raw formats produced on the CAPTURE queue.
var (
	PixFmtNV12        = FourCC('N', 'V', '1', '2')
	PixFmtNV21        = FourCC('N', 'V', '2', '1')
	PixFmtNV16        = FourCC('N', 'V', '1', '6')
	PixFmtYUYV        = FourCC('Y', 'U', 'Y', 'V')
	PixFmtYUV420      = FourCC('Y', 'U', '1', '2')
	PixFmtNV12Tiled4  = FourCC('V', 'T', '1', '2') // NV12 in 4x4 tiles
	PixFmtNV12Tiled32 = FourCC('S', 'T', '1', '2') // NV12 in 32x32 tiles
	PixFmtP010        = FourCC('P', '0', '1', '0')
)

var statelessFormats = []uint32{
	PixFmtH264Slice,
	PixFmtHEVCSlice,
	PixFmtVP8Frame,
	PixFmtVP9Frame,
	PixFmtMPEG2Slice,
	PixFmtAV1Frame,
}

// IsStateless reports whether pixfmt is a stateless compressed format.
func IsStateless(pixfmt uint32) bool {
	for _, f := range statelessFormats {
		if f == pixfmt {
			return true
		}
	}
	return false
}
