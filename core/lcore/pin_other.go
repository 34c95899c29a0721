//go:build !linux

package lcore

import "runtime"

type schedPinner struct{}

func (schedPinner) Pin(lc LCore) error {
	runtime.LockOSThread()
	return &AffinityError{LCore: lc, Err: ErrUnsupported}
}

// Current returns the lcore the calling thread is restricted to.
// It is always invalid on this platform.
func Current() LCore {
	return LCore{}
}
