//go:build linux

package decoder

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/internal/metrics"
)

// WaitForever makes Request.Poll block until the request completes.
const WaitForever time.Duration = -1

// RequestState is the lifecycle state of a Request.
type RequestState int

// Request states.
const (
	RequestIdle      RequestState = iota // Released back to the pool
	RequestAllocated                     // Being filled by the caller
	RequestSubmitted                     // Queued to the driver
	RequestCompleted                     // Decoded, MarkDone called
	RequestDestroyed                     // Kernel request closed
)

func (s RequestState) String() string {
	switch s {
	case RequestIdle:
		return "idle"
	case RequestAllocated:
		return "allocated"
	case RequestSubmitted:
		return "submitted"
	case RequestCompleted:
		return "completed"
	case RequestDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reasons a kernel request is destroyed instead of pooled.
const (
	reasonClosed       = "closed"
	reasonOrphaned     = "orphaned"
	reasonPending      = "pending"
	reasonReinitFailed = "reinit_failed"
)

// Request is one atomic decode operation: a bitstream buffer plus the codec
// controls that describe it. A Request handle is valid from AllocRequest
// until Release; the kernel request behind it is reused by later handles.
type Request struct {
	dec     *Decoder
	session *session
	kreq    KernelRequest

	mu        sync.Mutex
	state     RequestState
	bitstream Memory
	pending   atomic.Bool
}

// AllocRequest returns a request from the idle pool, or allocates a new
// kernel request when the pool is empty.
func (d *Decoder) AllocRequest() (*Request, error) {
	d.mu.RLock()
	s, mediaDev := d.session, d.media
	d.mu.RUnlock()
	if s == nil {
		return nil, ErrNotOpen
	}

	source := metrics.SourcePool
	kreq := s.pool.pop()
	if kreq == nil {
		var err error
		kreq, err = mediaDev.AllocRequest()
		if err != nil {
			d.logger.Error("MEDIA_IOC_REQUEST_ALLOC failed", "error", err)
			return nil, opError(ErrAllocation, "MEDIA_IOC_REQUEST_ALLOC", err)
		}
		source = metrics.SourceNew
	}

	r := &Request{
		dec:     d,
		session: s,
		kreq:    kreq,
		state:   RequestAllocated,
	}
	s.outstanding.Add(1)

	metrics.RecordRequestAllocated(d.cfg.VideoDevice, source)
	metrics.SetRequestPoolIdle(d.cfg.VideoDevice, s.pool.len())
	d.logger.Debug("Allocated request", "fd", kreq.FD(), "source", source)
	return r, nil
}

// FD returns the media request descriptor.
func (r *Request) FD() int {
	return r.kreq.FD()
}

// State returns the lifecycle state.
func (r *Request) State() RequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Orphaned reports whether the decoder session the request belongs to has
// been closed.
func (r *Request) Orphaned() bool {
	return r.session.closed.Load()
}

func (r *Request) log() *slog.Logger {
	return r.dec.logger.With("fd", r.kreq.FD())
}

// checkAttach verifies a bitstream can be attached for decoder d.
func (r *Request) checkAttach(d *Decoder) error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidState)
	}
	if r.dec != d {
		return fmt.Errorf("%w: request belongs to %s", ErrInvalidState, r.dec.cfg.VideoDevice)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkAttachLocked()
}

func (r *Request) checkAttachLocked() error {
	if r.state != RequestAllocated {
		return fmt.Errorf("%w: cannot attach bitstream to %s request", ErrInvalidState, r.state)
	}
	if r.bitstream != nil {
		return fmt.Errorf("%w: bitstream already attached", ErrInvalidState)
	}
	return nil
}

// AttachBitstream keeps a reference to mem until the request completes.
// Only one bitstream can be attached, and only before Submit.
func (r *Request) AttachBitstream(mem Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAttachLocked(); err != nil {
		return err
	}
	mem.Ref()
	r.bitstream = mem
	return nil
}

// Submit queues the request to the driver. On failure the request stays
// allocated and must still be released by the caller.
func (r *Request) Submit() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RequestAllocated {
		return fmt.Errorf("%w: cannot submit %s request", ErrInvalidState, r.state)
	}

	r.log().Debug("Queuing request")
	if err := r.kreq.Queue(); err != nil {
		r.log().Error("MEDIA_REQUEST_IOC_QUEUE failed", "error", err)
		metrics.RecordRequestSubmitFailure(r.dec.cfg.VideoDevice)
		return opError(ErrIO, "MEDIA_REQUEST_IOC_QUEUE", err)
	}

	r.pending.Store(true)
	r.state = RequestSubmitted
	metrics.RecordRequestSubmitted(r.dec.cfg.VideoDevice)
	return nil
}

// Poll waits up to timeout for the request to complete and reports whether
// it did. Use WaitForever to block without a limit.
func (r *Request) Poll(timeout time.Duration) (bool, error) {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()

	if state != RequestSubmitted && state != RequestCompleted {
		return false, fmt.Errorf("%w: cannot poll %s request", ErrInvalidState, state)
	}

	ready, err := r.kreq.Wait(timeout)
	if err != nil {
		r.log().Error("Request poll failed", "error", err)
		return false, opError(ErrIO, "poll", err)
	}
	return ready, nil
}

// MarkDone acknowledges completion: the consumed bitstream buffer is
// dequeued and its reference dropped. It does nothing unless the request
// is pending. The returned error is the dequeue failure, if any; the
// request is marked done regardless.
func (r *Request) MarkDone() error {
	r.mu.Lock()
	if !r.pending.Load() {
		r.mu.Unlock()
		return nil
	}
	bitstream := r.bitstream
	r.bitstream = nil
	r.pending.Store(false)
	r.state = RequestCompleted
	r.mu.Unlock()

	if bitstream == nil {
		return nil
	}
	err := r.dec.DequeueInput()
	bitstream.Unref()
	return err
}

// IsDone reports whether the request is not pending.
func (r *Request) IsDone() bool {
	return !r.pending.Load()
}

// Release hands the request back. Completed and never-submitted requests
// are reinitialized and pooled; pending requests, requests whose
// reinitialization fails, and requests of a closed decoder are destroyed.
// Releasing twice is a no-op.
func (r *Request) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.log()
	if r.state == RequestIdle || r.state == RequestDestroyed {
		log.Debug("Request already released", "state", r.state)
		return
	}

	d := r.dec
	r.session.outstanding.Add(-1)
	metrics.RecordRequestReleased(d.cfg.VideoDevice)

	if r.bitstream != nil {
		r.bitstream.Unref()
		r.bitstream = nil
	}

	if r.session.closed.Load() {
		log.Debug("Destroying orphaned request")
		r.destroyLocked(reasonOrphaned)
		return
	}

	if r.pending.Load() {
		log.Warn("Freeing pending request")
		r.destroyLocked(reasonPending)
		return
	}

	if err := r.kreq.Reinit(); err != nil {
		log.Error("MEDIA_REQUEST_IOC_REINIT failed", "error", opError(ErrRecycle, "MEDIA_REQUEST_IOC_REINIT", err))
		r.destroyLocked(reasonReinitFailed)
		return
	}

	if !r.session.pool.push(r.kreq) {
		log.Debug("Decoder closed during release")
		r.destroyLocked(reasonOrphaned)
		return
	}
	r.state = RequestIdle

	metrics.RecordRequestRecycled(d.cfg.VideoDevice)
	metrics.SetRequestPoolIdle(d.cfg.VideoDevice, r.session.pool.len())
	log.Debug("Recycled request")
}

func (r *Request) destroyLocked(reason string) {
	r.dec.destroyRequest(r.kreq, reason)
	r.state = RequestDestroyed
}

// destroyRequest closes a kernel request for good.
func (d *Decoder) destroyRequest(kreq KernelRequest, reason string) {
	fd := kreq.FD()
	if err := kreq.Close(); err != nil {
		d.logger.Warn("Failed to close request", "fd", fd, "error", err)
	}
	metrics.RecordRequestDestroyed(d.cfg.VideoDevice, reason)
	d.publish(events.RequestDestroyedEvent{
		VideoDevice: d.cfg.VideoDevice,
		Reason:      reason,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
	d.logger.Debug("Destroyed request", "fd", fd, "reason", reason)
}
