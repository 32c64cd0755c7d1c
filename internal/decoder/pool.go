//go:build linux

package decoder

import "sync"

// requestPool is the FIFO of idle kernel requests of one session. Once
// drained it rejects pushes, so late releases destroy their request instead.
type requestPool struct {
	mu     sync.Mutex
	idle   []KernelRequest
	closed bool
}

func newRequestPool() *requestPool {
	return &requestPool{}
}

// push appends kreq and reports whether the pool took it.
func (p *requestPool) push(kreq KernelRequest) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.idle = append(p.idle, kreq)
	return true
}

// pop removes the oldest idle request, or returns nil.
func (p *requestPool) pop() KernelRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	kreq := p.idle[0]
	p.idle[0] = nil
	p.idle = p.idle[1:]
	return kreq
}

func (p *requestPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// drain closes the pool and hands back everything still in it.
func (p *requestPool) drain() []KernelRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	return idle
}
