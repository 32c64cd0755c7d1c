//go:build linux

package media

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// ErrRequestClosed is returned for operations on a closed request.
var ErrRequestClosed = errors.New("media: request closed")

// Request is a media request file descriptor. Completion is signalled as an
// exceptional condition (POLLPRI) on the descriptor.
type Request struct {
	fd     int
	pollFd [1]unix.PollFd
}

func newRequest(fd int) *Request {
	r := &Request{fd: fd}
	r.pollFd[0] = unix.PollFd{Fd: int32(fd), Events: unix.POLLPRI}
	return r
}

// FD returns the request file descriptor, as passed in request_fd fields.
func (r *Request) FD() int {
	return r.fd
}

// Queue submits the request with MEDIA_REQUEST_IOC_QUEUE.
func (r *Request) Queue() error {
	if r.fd < 0 {
		return ErrRequestClosed
	}
	return ioctl(r.fd, mediaRequestIocQueue, nil)
}

// Reinit clears the request with MEDIA_REQUEST_IOC_REINIT so it can be
// reused. The driver refuses while the request is still queued.
func (r *Request) Reinit() error {
	if r.fd < 0 {
		return ErrRequestClosed
	}
	return ioctl(r.fd, mediaRequestIocReinit, nil)
}

// Wait blocks until the request completes or timeout elapses. A negative
// timeout waits forever. It reports whether the request completed.
func (r *Request) Wait(timeout time.Duration) (bool, error) {
	if r.fd < 0 {
		return false, ErrRequestClosed
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	for {
		r.pollFd[0].Revents = 0
		n, err := unix.Poll(r.pollFd[:], ms)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue // Interrupted, retry
			}
			return false, err
		}
		return n > 0 && r.pollFd[0].Revents&unix.POLLPRI != 0, nil
	}
}

// Close releases the request.
func (r *Request) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}
