//go:build linux

package media

import (
	"bytes"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open media controller node.
type Device struct {
	path string
	fd   int
}

// Open opens a media controller node read-only. Request allocation does not
// need write access.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Close closes the media node. Requests allocated from it stay valid until
// they are closed themselves.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// Info issues MEDIA_IOC_DEVICE_INFO.
func (d *Device) Info() (DeviceInfo, error) {
	info := mediaDeviceInfo{}
	if err := ioctl(d.fd, mediaIocDeviceInfo, unsafe.Pointer(&info)); err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{
		Driver:        cstr(info.driver[:]),
		Model:         cstr(info.model[:]),
		Serial:        cstr(info.serial[:]),
		BusInfo:       cstr(info.busInfo[:]),
		MediaVersion:  info.mediaVersion,
		HWRevision:    info.hwRevision,
		DriverVersion: info.driverVersion,
	}, nil
}

// AllocRequest allocates a new request with MEDIA_IOC_REQUEST_ALLOC.
func (d *Device) AllocRequest() (*Request, error) {
	var fd int32
	if err := ioctl(d.fd, mediaIocRequestAlloc, unsafe.Pointer(&fd)); err != nil {
		return nil, err
	}
	return newRequest(int(fd)), nil
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
