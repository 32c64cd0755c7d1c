//go:build linux

package v4l2

import (
	"fmt"
	"unsafe"
)

// EnumFormat returns the format at index for the queue of bufType.
// The driver reports the end of the list with EINVAL.
func (d *Device) EnumFormat(bufType, index uint32) (FormatInfo, error) {
	fmtdesc := v4l2Fmtdesc{
		index: index,
		typ:   bufType,
	}
	if err := ioctl(d.fd, vidiocEnumFmt, unsafe.Pointer(&fmtdesc)); err != nil {
		return FormatInfo{}, err
	}
	return FormatInfo{
		PixelFormat: fmtdesc.pixelformat,
		FormatName:  cstr(fmtdesc.description[:]),
		Emulated:    fmtdesc.flags&FmtFlagEmulated != 0,
		Compressed:  fmtdesc.flags&FmtFlagCompressed != 0,
	}, nil
}

// GetFormat issues VIDIOC_G_FMT for the queue of bufType.
func (d *Device) GetFormat(bufType uint32) (PixFormat, error) {
	f := v4l2Format{typ: bufType}
	if err := ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return pixFormatFromKernel(&f.pixMp), nil
}

// SetFormat issues VIDIOC_S_FMT and returns the format as adjusted by the
// driver.
func (d *Device) SetFormat(bufType uint32, pf PixFormat) (PixFormat, error) {
	f := v4l2Format{typ: bufType}
	pixFormatToKernel(pf, &f.pixMp)
	if err := ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return pixFormatFromKernel(&f.pixMp), nil
}

func pixFormatFromKernel(k *v4l2PixFormatMplane) PixFormat {
	n := int(k.numPlanes)
	if n > MaxPlanes {
		n = MaxPlanes
	}
	pf := PixFormat{
		PixelFormat: k.pixelformat,
		Width:       k.width,
		Height:      k.height,
		Field:       k.field,
		Colorspace:  k.colorspace,
		Planes:      make([]PlaneFormat, n),
	}
	for i := 0; i < n; i++ {
		pf.Planes[i] = PlaneFormat{
			SizeImage:    k.planeFmt[i].sizeimage,
			BytesPerLine: k.planeFmt[i].bytesperline,
		}
	}
	return pf
}

func pixFormatToKernel(pf PixFormat, k *v4l2PixFormatMplane) {
	k.pixelformat = pf.PixelFormat
	k.width = pf.Width
	k.height = pf.Height
	k.field = pf.Field
	k.colorspace = pf.Colorspace
	n := len(pf.Planes)
	if n > MaxPlanes {
		n = MaxPlanes
	}
	k.numPlanes = uint8(n)
	for i := 0; i < n; i++ {
		k.planeFmt[i].sizeimage = pf.Planes[i].SizeImage
		k.planeFmt[i].bytesperline = pf.Planes[i].BytesPerLine
	}
}

// FourCC builds a V4L2 pixel format code from its four characters.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// ParseFourCC converts a four-character string such as "S264" into a pixel
// format code.
func ParseFourCC(s string) (uint32, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid fourcc %q: must be 4 characters", s)
	}
	return FourCC(s[0], s[1], s[2], s[3]), nil
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}
