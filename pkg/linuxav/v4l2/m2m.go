//go:build linux

package v4l2

import (
	"fmt"
	"unsafe"
)

// Device is an open V4L2 memory-to-memory video node.
// Calls on one queue must be serialized by the caller.
type Device struct {
	path string
	fd   int
}

// Open opens a video node in non-blocking read-write mode.
func Open(path string) (*Device, error) {
	fd, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Fd returns the underlying file descriptor.
func (d *Device) Fd() int {
	return d.fd
}

// Close closes the device node.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := closeFd(d.fd)
	d.fd = -1
	return err
}

// QueryCapability issues VIDIOC_QUERYCAP.
func (d *Device) QueryCapability() (Capability, error) {
	cap := v4l2Capability{}
	if err := ioctl(d.fd, vidiocQuerycap, unsafe.Pointer(&cap)); err != nil {
		return Capability{}, err
	}
	return capabilityFromKernel(&cap), nil
}

// StreamOn starts streaming on the queue of the given buffer type.
func (d *Device) StreamOn(bufType uint32) error {
	typ := bufType
	return ioctl(d.fd, vidiocStreamon, unsafe.Pointer(&typ))
}

// StreamOff stops streaming on the queue of the given buffer type and
// returns all of its buffers to the dequeued state.
func (d *Device) StreamOff(bufType uint32) error {
	typ := bufType
	return ioctl(d.fd, vidiocStreamoff, unsafe.Pointer(&typ))
}

func capabilityFromKernel(cap *v4l2Capability) Capability {
	// Get the effective capabilities
	caps := cap.capabilities
	if caps&CapDeviceCaps != 0 {
		caps = cap.deviceCaps
	}
	return Capability{
		Driver:  cstr(cap.driver[:]),
		Card:    cstr(cap.card[:]),
		BusInfo: cstr(cap.busInfo[:]),
		Version: cap.version,
		Caps:    caps,
	}
}
