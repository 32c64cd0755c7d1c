//go:build linux

package decoder

import (
	"time"

	"github.com/smazurov/v4l2codecs/pkg/linuxav/media"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// Backend opens the two device nodes of a decoder.
type Backend interface {
	OpenMedia(path string) (MediaDevice, error)
	OpenVideo(path string) (VideoDevice, error)
}

// VideoDevice is the streaming-plane connection. *v4l2.Device implements it.
type VideoDevice interface {
	EnumFormat(bufType, index uint32) (v4l2.FormatInfo, error)
	GetFormat(bufType uint32) (v4l2.PixFormat, error)
	SetFormat(bufType uint32, pf v4l2.PixFormat) (v4l2.PixFormat, error)
	RequestBuffers(bufType, memory, count uint32) (uint32, error)
	QueryBuffer(bufType, memory, index uint32) ([]v4l2.Plane, error)
	ExportBuffer(bufType, index, plane, flags uint32) (int, error)
	QueueBuffer(b *v4l2.Buffer) error
	DequeueBuffer(bufType, memory uint32) (v4l2.Buffer, error)
	StreamOn(bufType uint32) error
	StreamOff(bufType uint32) error
	SetExtControls(which uint32, requestFD int, ctrls []v4l2.ExtControl) (uint32, error)
	Close() error
}

// MediaDevice is the control-plane connection.
type MediaDevice interface {
	AllocRequest() (KernelRequest, error)
	Close() error
}

// KernelRequest is one media request descriptor. *media.Request implements
// it.
type KernelRequest interface {
	FD() int
	Queue() error
	Reinit() error
	Wait(timeout time.Duration) (bool, error)
	Close() error
}

// kernelBackend opens real device nodes.
type kernelBackend struct{}

func (kernelBackend) OpenMedia(path string) (MediaDevice, error) {
	dev, err := media.Open(path)
	if err != nil {
		return nil, err
	}
	return mediaDevice{dev}, nil
}

func (kernelBackend) OpenVideo(path string) (VideoDevice, error) {
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// mediaDevice narrows media.Device's concrete request type.
type mediaDevice struct {
	*media.Device
}

func (m mediaDevice) AllocRequest() (KernelRequest, error) {
	req, err := m.Device.AllocRequest()
	if err != nil {
		return nil, err
	}
	return req, nil
}
