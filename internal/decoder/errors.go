//go:build linux

package decoder

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Error kinds. Every error returned by this package matches one of them
// with errors.Is.
var (
	ErrDeviceOpen        = errors.New("device open failed")
	ErrNotOpen           = errors.New("decoder not open")
	ErrFormatRejected    = errors.New("format rejected")
	ErrFormatUnsupported = errors.New("format unsupported")
	ErrIO                = errors.New("driver call failed")
	ErrAllocation        = errors.New("request allocation failed")
	ErrControlRejected   = errors.New("controls rejected")
	ErrRecycle           = errors.New("request recycle failed")
	ErrInvalidState      = errors.New("invalid request state")
	ErrInvalidIndex      = errors.New("buffer index out of range")
)

// OpError reports a failed driver call. Op names the call, usually the
// ioctl (e.g. "VIDIOC_QBUF").
type OpError struct {
	Kind error
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Op)
}

// Unwrap exposes both the kind and the cause, so errors.Is matches
// ErrIO as well as unix.EAGAIN.
func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Errno returns the OS error code behind the failure, or 0.
func (e *OpError) Errno() unix.Errno {
	var errno unix.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

// ControlError reports a rejected VIDIOC_S_EXT_CTRLS call.
type ControlError struct {
	OpError
	// Index is the driver's error_idx: the failing control, or Count when
	// the driver could not attribute the failure to one control.
	Index uint32
	Count int
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("%s (control %d of %d)", e.OpError.Error(), e.Index, e.Count)
}

func opError(kind error, op string, err error) *OpError {
	return &OpError{Kind: kind, Op: op, Err: err}
}
