//go:build linux

package v4l2

import (
	"encoding/binary"
	"runtime"
	"unsafe"
)

// SetExtControls writes ctrls in one VIDIOC_S_EXT_CTRLS call. With which set
// to CtrlWhichRequestVal the values are stored in the media request
// requestFD instead of being applied immediately.
//
// On failure the returned index is the driver's error_idx: the failing
// control, or len(ctrls) when the driver could not tell which one failed.
func (d *Device) SetExtControls(which uint32, requestFD int, ctrls []ExtControl) (uint32, error) {
	if len(ctrls) == 0 {
		return 0, nil
	}

	kctrls := encodeExtControls(ctrls)
	controls := v4l2ExtControls{
		which:    which,
		count:    uint32(len(kctrls)),
		controls: &kctrls[0],
	}
	if which == CtrlWhichRequestVal {
		controls.requestFd = int32(requestFD)
	}

	err := ioctl(d.fd, vidiocSExtCtrls, unsafe.Pointer(&controls))
	runtime.KeepAlive(ctrls)
	runtime.KeepAlive(kctrls)
	if err != nil {
		return controls.errorIdx, err
	}
	return 0, nil
}

// encodeExtControls lays ctrls out as the packed kernel array. Payload
// pointers stay valid for as long as ctrls is reachable.
func encodeExtControls(ctrls []ExtControl) []v4l2ExtControl {
	kctrls := make([]v4l2ExtControl, len(ctrls))
	for i := range ctrls {
		c := &ctrls[i]
		k := &kctrls[i]
		k.id = c.ID
		if len(c.Payload) > 0 {
			k.size = uint32(len(c.Payload))
			binary.NativeEndian.PutUint64(k.value[:], uint64(uintptr(unsafe.Pointer(&c.Payload[0]))))
			continue
		}
		binary.NativeEndian.PutUint64(k.value[:], uint64(c.Value))
	}
	return kctrls
}
