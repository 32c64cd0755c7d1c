//go:build linux

package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// Control is one codec control. Compound controls such as the H.264 SPS
// carry the kernel struct bytes in Payload; simple controls use Value.
type Control struct {
	ID      uint32
	Value   int64
	Payload []byte
}

// CompoundControl encodes payload, a fixed-size mirror of a kernel control
// struct, in native byte order. The struct must spell out the kernel's
// padding explicitly.
func CompoundControl(id uint32, payload any) (Control, error) {
	b, err := binary.Append(nil, binary.NativeEndian, payload)
	if err != nil {
		return Control{}, fmt.Errorf("failed to encode control %#x: %w", id, err)
	}
	return Control{ID: id, Payload: b}, nil
}

// SetControls writes all controls in one call. With a request they are
// stored in it and applied when it is decoded; with a nil request they are
// applied immediately. A rejection is reported as *ControlError.
func (d *Decoder) SetControls(req *Request, controls []Control) error {
	video, err := d.videoDevice()
	if err != nil {
		return err
	}
	if len(controls) == 0 {
		return nil
	}

	var which uint32
	requestFD := 0
	if req != nil {
		if req.dec != d {
			return fmt.Errorf("%w: request belongs to %s", ErrInvalidState, req.dec.cfg.VideoDevice)
		}
		if state := req.State(); state != RequestAllocated {
			return fmt.Errorf("%w: cannot set controls on %s request", ErrInvalidState, state)
		}
		which = v4l2.CtrlWhichRequestVal
		requestFD = req.FD()
	}

	ctrls := make([]v4l2.ExtControl, len(controls))
	for i, c := range controls {
		ctrls[i] = v4l2.ExtControl(c)
	}

	errorIdx, err := video.SetExtControls(which, requestFD, ctrls)
	if err != nil {
		d.logger.Error("VIDIOC_S_EXT_CTRLS failed",
			"count", len(controls), "error_idx", errorIdx, "request_fd", requestFD, "error", err)
		return &ControlError{
			OpError: OpError{Kind: ErrControlRejected, Op: "VIDIOC_S_EXT_CTRLS", Err: err},
			Index:   errorIdx,
			Count:   len(controls),
		}
	}
	return nil
}
