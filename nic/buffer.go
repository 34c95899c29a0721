package nic

import (
	"sync"

	"github.com/zyedidia/generic"
)

// Buffer is a packet buffer.
type Buffer struct {
	// Data holds packet content; its capacity is the pool dataroom.
	Data []byte
	// Len is the packet length on the wire, which may exceed len(Data) if truncated.
	Len  int
	pool *Pool
}

// Pool is a fixed-capacity packet buffer pool, normally one per receive queue.
// A driver can deliver no more packets than the pool has free buffers,
// so a consumer that does not free buffers starves the queue.
type Pool struct {
	mu       sync.Mutex
	free     []*Buffer
	capacity int
}

// NewPool creates a Pool.
func NewPool(capacity, dataroom int) *Pool {
	p := &Pool{
		free:     make([]*Buffer, capacity),
		capacity: capacity,
	}
	backing := make([]byte, capacity*dataroom)
	for i := range p.free {
		p.free[i] = &Buffer{
			Data: backing[i*dataroom : (i+1)*dataroom : (i+1)*dataroom],
			pool: p,
		}
	}
	return p
}

// Alloc allocates up to len(bufs) buffers.
// Returns the number allocated.
func (p *Pool) Alloc(bufs []*Buffer) (n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n = generic.Min(len(bufs), len(p.free))
	tail := len(p.free) - n
	copy(bufs, p.free[tail:])
	for i := range p.free[tail:] {
		p.free[tail+i] = nil
	}
	p.free = p.free[:tail]
	return n
}

// Free returns a buffer to the pool it came from.
func (p *Pool) Free(buf *Buffer) {
	if buf.pool != p {
		panic("buffer from another pool")
	}
	buf.Data, buf.Len = buf.Data[:cap(buf.Data)], 0
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.capacity {
		panic("buffer double free")
	}
	p.free = append(p.free, buf)
}

// Outstanding returns number of allocated buffers not yet freed.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - len(p.free)
}

// Capacity returns pool capacity.
func (p *Pool) Capacity() int {
	return p.capacity
}

// FreeBuffer returns a buffer to its pool.
// Drivers may use this to implement Device.Free.
func FreeBuffer(buf *Buffer) {
	buf.pool.Free(buf)
}
