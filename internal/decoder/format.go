//go:build linux

package decoder

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sys/unix"

	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// Format is a negotiated queue format.
type Format struct {
	FourCC uint32
	Width  uint32
	Height uint32
	Planes []v4l2.PlaneFormat
}

// VideoInfo is the resolved raw output format.
type VideoInfo struct {
	Format string // raw format name, e.g. "NV12"
	FourCC uint32
	Width  uint32
	Height uint32
	Planes []v4l2.PlaneFormat
}

// rawFormats maps raw pixel layout names to V4L2 pixel formats.
var rawFormats = []struct {
	name   string
	fourcc uint32
}{
	{"NV12", v4l2.PixFmtNV12},
	{"NV21", v4l2.PixFmtNV21},
	{"NV16", v4l2.PixFmtNV16},
	{"YUY2", v4l2.PixFmtYUYV},
	{"I420", v4l2.PixFmtYUV420},
	{"NV12_4L4", v4l2.PixFmtNV12Tiled4},
	{"NV12_32L32", v4l2.PixFmtNV12Tiled32},
	{"P010_10LE", v4l2.PixFmtP010},
}

// RawFormatName returns the raw layout name of a V4L2 pixel format.
func RawFormatName(fourcc uint32) (string, bool) {
	for _, f := range rawFormats {
		if f.fourcc == fourcc {
			return f.name, true
		}
	}
	return "", false
}

// RawFormatFourCC returns the V4L2 pixel format of a raw layout name.
func RawFormatFourCC(name string) (uint32, bool) {
	for _, f := range rawFormats {
		if f.name == name {
			return f.fourcc, true
		}
	}
	return 0, false
}

// EnumInputFormat returns the compressed format at index. ok is false past
// the end of the list.
func (d *Decoder) EnumInputFormat(index uint32) (fourcc uint32, ok bool, err error) {
	video, err := d.videoDevice()
	if err != nil {
		return 0, false, err
	}

	info, err := video.EnumFormat(Input.bufType(), index)
	if errors.Is(err, unix.EINVAL) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, d.ioFailure("VIDIOC_ENUM_FMT", err, "direction", Input, "index", index)
	}
	return info.PixelFormat, true, nil
}

// SetInputFormat sets the compressed format and coded size. The driver must
// accept the values unchanged; any adjustment fails with ErrFormatRejected.
func (d *Decoder) SetInputFormat(fourcc, width, height uint32) error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}

	got, err := video.SetFormat(Input.bufType(), v4l2.PixFormat{
		PixelFormat: fourcc,
		Width:       width,
		Height:      height,
	})
	if err != nil {
		return d.ioFailure("VIDIOC_S_FMT", err, "direction", Input, "fourcc", v4l2.FormatFourCC(fourcc))
	}

	if got.PixelFormat != fourcc || got.Width != width || got.Height != height {
		d.logger.Warn("Failed to set input format",
			"fourcc", v4l2.FormatFourCC(fourcc), "width", width, "height", height,
			"got_fourcc", v4l2.FormatFourCC(got.PixelFormat), "got_width", got.Width, "got_height", got.Height)
		return opError(ErrFormatRejected, "VIDIOC_S_FMT", unix.EINVAL)
	}
	return nil
}

// InputFormat returns the current compressed format.
func (d *Decoder) InputFormat() (Format, error) {
	return d.format(Input)
}

// OutputFormat returns the current raw format.
func (d *Decoder) OutputFormat() (Format, error) {
	return d.format(Output)
}

func (d *Decoder) format(dir Direction) (Format, error) {
	video, err := d.videoDevice()
	if err != nil {
		return Format{}, err
	}
	pf, err := video.GetFormat(dir.bufType())
	if err != nil {
		return Format{}, d.ioFailure("VIDIOC_G_FMT", err, "direction", dir)
	}
	return Format{
		FourCC: pf.PixelFormat,
		Width:  pf.Width,
		Height: pf.Height,
		Planes: pf.Planes,
	}, nil
}

// OutputCapabilities lists the raw formats the decoder can produce for the
// current input format: the driver's current output format first, then the
// rest in enumeration order. Formats without a known raw layout are left out.
func (d *Decoder) OutputCapabilities() ([]string, error) {
	video, err := d.videoDevice()
	if err != nil {
		return nil, err
	}

	current, err := video.GetFormat(Output.bufType())
	if err != nil {
		return nil, d.ioFailure("VIDIOC_G_FMT", err, "direction", Output)
	}

	var names []string
	add := func(fourcc uint32) {
		name, ok := RawFormatName(fourcc)
		if !ok {
			d.logger.Debug("Skipping unknown output format", "fourcc", v4l2.FormatFourCC(fourcc))
			return
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	add(current.PixelFormat)
	for i := uint32(0); ; i++ {
		info, enumErr := video.EnumFormat(Output.bufType(), i)
		if enumErr != nil {
			if !errors.Is(enumErr, unix.EINVAL) {
				d.logger.Error("VIDIOC_ENUM_FMT failed", "direction", Output, "index", i, "error", enumErr)
			}
			break
		}
		add(info.PixelFormat)
	}

	return names, nil
}

// SelectOutputFormat fixates the raw output format. preferred wins when it
// is one of candidates, otherwise the first candidate is used. The driver's
// format is changed only when the choice differs from it.
func (d *Decoder) SelectOutputFormat(candidates []string, preferred string) (VideoInfo, error) {
	if len(candidates) == 0 {
		return VideoInfo{}, fmt.Errorf("%w: no candidate formats", ErrFormatUnsupported)
	}

	video, err := d.videoDevice()
	if err != nil {
		return VideoInfo{}, err
	}

	current, err := video.GetFormat(Output.bufType())
	if err != nil {
		return VideoInfo{}, d.ioFailure("VIDIOC_G_FMT", err, "direction", Output)
	}

	chosen := candidates[0]
	if preferred != "" && slices.Contains(candidates, preferred) {
		chosen = preferred
	}

	if fourcc, ok := RawFormatFourCC(chosen); ok && fourcc != current.PixelFormat {
		d.logger.Debug("Trying downstream format", "format", chosen)
		want := current
		want.PixelFormat = fourcc
		current, err = video.SetFormat(Output.bufType(), want)
		if err != nil {
			return VideoInfo{}, d.ioFailure("VIDIOC_S_FMT", err, "direction", Output, "format", chosen)
		}
	}

	name, ok := RawFormatName(current.PixelFormat)
	if !ok {
		fourcc := v4l2.FormatFourCC(current.PixelFormat)
		d.logger.Error("Unsupported V4L2 pixel format", "fourcc", fourcc)
		return VideoInfo{}, fmt.Errorf("%w: %s", ErrFormatUnsupported, fourcc)
	}

	info := VideoInfo{
		Format: name,
		FourCC: current.PixelFormat,
		Width:  current.Width,
		Height: current.Height,
		Planes: current.Planes,
	}
	d.logger.Info("Selected output format", "format", info.Format, "width", info.Width, "height", info.Height)
	return info, nil
}
