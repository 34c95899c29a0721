package lcore

import (
	"runtime"

	"golang.org/x/sys/unix"
)

type schedPinner struct{}

// Pin locks the goroutine to its OS thread and applies sched_setaffinity on that thread.
// The thread is never unlocked, so that the Go runtime discards it when the goroutine exits
// instead of handing a pinned thread to other goroutines.
func (schedPinner) Pin(lc LCore) error {
	if !lc.Valid() {
		return &AffinityError{LCore: lc, Err: unix.EINVAL}
	}
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(lc.ID())
	if e := unix.SchedSetaffinity(0, &set); e != nil {
		return &AffinityError{LCore: lc, Err: e}
	}
	return nil
}

// Current returns the lcore the calling thread is restricted to.
// Returns invalid LCore if the thread may run on more than one lcore.
func Current() LCore {
	var set unix.CPUSet
	if e := unix.SchedGetaffinity(0, &set); e != nil || set.Count() != 1 {
		return LCore{}
	}
	for id := 0; id <= MaxLCoreID; id++ {
		if set.IsSet(id) {
			return FromID(id)
		}
	}
	return LCore{}
}
