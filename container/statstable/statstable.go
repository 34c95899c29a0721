// Package statstable provides per-queue traffic counters shared between pollers and a reporter.
//
// Each slot has exactly one producer (the poller of that queue) that adds to it,
// and one consumer (the reporter) that reads and clears it with an atomic exchange.
// Every counted packet and byte is therefore observed by exactly one snapshot.
// Slots are read at slightly different instants within one reporter pass,
// so cross-slot simultaneity is not guaranteed.
package statstable

import (
	"fmt"
	"sync/atomic"
	"time"
)

const cacheLine = 64

// Counters is a snapshot of one slot.
type Counters struct {
	Packets uint64    `json:"packets"`
	Bytes   uint64    `json:"bytes"`
	Since   time.Time `json:"since"` // time of previous snapshot, or table creation
}

// Elapsed returns the duration between Since and now.
func (c Counters) Elapsed(now time.Time) time.Duration {
	return now.Sub(c.Since)
}

type slot struct {
	packets      atomic.Uint64
	bytes        atomic.Uint64
	lastSnapshot atomic.Int64 // UnixNano
	_            [cacheLine - 24]byte
}

// Table is a fixed-length array of per-queue slots.
type Table struct {
	slots []slot
}

// New creates a Table with n slots, one per queue.
func New(n int, now time.Time) *Table {
	if n <= 0 {
		panic("statstable: non-positive capacity")
	}
	t := &Table{slots: make([]slot, n)}
	for i := range t.slots {
		t.slots[i].lastSnapshot.Store(now.UnixNano())
	}
	return t
}

// Len returns number of slots.
func (t *Table) Len() int {
	return len(t.slots)
}

func (t *Table) at(q int) *slot {
	if q < 0 || q >= len(t.slots) {
		panic(fmt.Sprintf("statstable: queue %d out of range [0,%d)", q, len(t.slots)))
	}
	return &t.slots[q]
}

// Add adds packet and byte counts into slot q.
// This should be invoked only by the poller that owns queue q.
func (t *Table) Add(q int, packets, bytes uint64) {
	s := t.at(q)
	s.packets.Add(packets)
	s.bytes.Add(bytes)
}

// Snapshot atomically reads and clears slot q, and records now as its snapshot time.
// This should be invoked only by the reporter.
func (t *Table) Snapshot(q int, now time.Time) (c Counters) {
	s := t.at(q)
	c.Packets = s.packets.Swap(0)
	c.Bytes = s.bytes.Swap(0)
	c.Since = time.Unix(0, s.lastSnapshot.Swap(now.UnixNano()))
	return c
}

// Peek reads slot q without clearing it.
func (t *Table) Peek(q int) (c Counters) {
	s := t.at(q)
	c.Packets = s.packets.Load()
	c.Bytes = s.bytes.Load()
	c.Since = time.Unix(0, s.lastSnapshot.Load())
	return c
}
