package lcore

import (
	"errors"
	"fmt"
	"slices"

	"github.com/panicnic/panicrx/core/hwinfo"
	"go.uber.org/zap"
)

// ErrNoLCore indicates no distinct lcore is available for a queue.
var ErrNoLCore = errors.New("no lcore available")

// Allocator assigns a distinct lcore to each receive queue.
type Allocator struct {
	allowed   hwinfo.Cores
	allocated map[int]int // lcore ID => queue
}

// NewAllocator creates an Allocator.
// If provider reports no cores, every lcore ID is considered allowed.
func NewAllocator(provider hwinfo.Provider) *Allocator {
	return &Allocator{
		allowed:   provider.Cores(),
		allocated: map[int]int{},
	}
}

func (la *Allocator) isAvailable(lc LCore) bool {
	if !lc.Valid() {
		return false
	}
	if len(la.allowed) > 0 && !la.allowed.Has(lc.ID()) {
		return false
	}
	_, taken := la.allocated[lc.ID()]
	return !taken
}

// Alloc allocates an lcore for a queue.
// If mask is non-empty, the lowest available lcore in the mask is chosen.
// Otherwise, the lcore whose ID equals the queue index is chosen.
// If that is not possible, it returns *AffinityError that wraps ErrNoLCore.
func (la *Allocator) Alloc(queue int, mask Mask) (lc LCore, e error) {
	if lc, ae := la.alloc(queue, mask); ae != nil {
		return lc, ae
	}
	return lc, nil
}

func (la *Allocator) alloc(queue int, mask Mask) (LCore, *AffinityError) {
	if mask.Empty() {
		lc := FromID(queue)
		if la.isAvailable(lc) {
			la.assign(queue, lc)
			return lc, nil
		}
		return LCore{}, &AffinityError{LCore: lc, Err: fmt.Errorf("queue %d: %w", queue, ErrNoLCore)}
	}

	list := mask.List()
	for _, lc := range list {
		if la.isAvailable(lc) {
			la.assign(queue, lc)
			return lc, nil
		}
	}
	return LCore{}, &AffinityError{LCore: list[0], Err: fmt.Errorf("queue %d mask %s: %w", queue, mask, ErrNoLCore)}
}

func (la *Allocator) assign(queue int, lc LCore) {
	la.allocated[lc.ID()] = queue
	logger.Info("lcore allocated", zap.Int("queue", queue), lc.ZapField("lc"))
}

// AllocQueues allocates lcores for queues 0..n-1.
// masks contains optional per-queue preference.
// A queue that cannot get an lcore is given the zero LCore, so that its thread runs unpinned;
// each such failure is returned in unpinned.
func (la *Allocator) AllocQueues(n int, masks map[int]Mask) (list []LCore, unpinned []*AffinityError) {
	list = make([]LCore, n)
	for q := range list {
		var ae *AffinityError
		if list[q], ae = la.alloc(q, masks[q]); ae != nil {
			unpinned = append(unpinned, ae)
		}
	}
	la.checkSiblings(list)
	return list, unpinned
}

// checkSiblings warns when two queues land on hyperthreads of the same physical core.
func (la *Allocator) checkSiblings(list []LCore) {
	for key, siblings := range la.allowed.ByPhysicalKey() {
		var used []int
		for _, core := range siblings {
			if slices.Contains(list, FromID(core.ID)) {
				used = append(used, core.ID)
			}
		}
		if len(used) > 1 {
			logger.Warn("queues share a physical core", zap.Int("physical", key), zap.Ints("lcores", used))
		}
	}
}

// Free deallocates an lcore.
// The zero LCore given to an unpinned queue is ignored.
func (la *Allocator) Free(lc LCore) {
	if !lc.Valid() {
		return
	}
	queue, ok := la.allocated[lc.ID()]
	if !ok {
		panic("lcore double free")
	}
	delete(la.allocated, lc.ID())
	logger.Info("lcore freed", zap.Int("queue", queue), lc.ZapField("lc"))
}

// Clear deletes all allocations.
func (la *Allocator) Clear() {
	for id := range la.allocated {
		la.Free(FromID(id))
	}
}
