// Package lcore binds worker threads to logical CPU cores.
package lcore

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/panicnic/panicrx/core/logging"
	"go.uber.org/zap"
)

var logger = logging.New("lcore")

// MaxLCoreID is the maximum supported logical core ID.
const MaxLCoreID = 1023

// LCore represents a logical core.
// Zero value is invalid lcore.
type LCore struct {
	v int // lcore ID + 1
}

// FromID converts lcore ID to LCore.
// Returns invalid LCore if id is out of range.
func FromID(id int) (lc LCore) {
	if id < 0 || id > MaxLCoreID {
		return lc
	}
	lc.v = id + 1
	return lc
}

// ID returns lcore ID.
func (lc LCore) ID() int {
	return lc.v - 1
}

// Valid returns true if this is a valid lcore (not zero value).
func (lc LCore) Valid() bool {
	return lc.v != 0
}

func (lc LCore) String() string {
	if !lc.Valid() {
		return "invalid"
	}
	return strconv.Itoa(lc.ID())
}

// ZapField returns a zap.Field for logging.
func (lc LCore) ZapField(key string) zap.Field {
	if !lc.Valid() {
		return zap.String(key, "invalid")
	}
	return zap.Int(key, lc.ID())
}

// ErrUnsupported indicates thread affinity is not supported on this platform.
var ErrUnsupported = errors.New("thread affinity unsupported on this platform")

// AffinityError indicates a thread could not be pinned to its lcore.
// This is not fatal: the thread may run unpinned, but throughput guarantees are void.
type AffinityError struct {
	LCore LCore
	Err   error
}

func (e *AffinityError) Error() string {
	return fmt.Sprintf("pin to lcore %s: %v", e.LCore, e.Err)
}

func (e *AffinityError) Unwrap() error {
	return e.Err
}

// Pinner binds the calling goroutine to an lcore.
type Pinner interface {
	// Pin locks the calling goroutine to its OS thread and sets the thread affinity to lc.
	// It must be invoked on the worker goroutine, before steady-state work begins.
	// Failure is reported as *AffinityError.
	Pin(lc LCore) error
}

// PinnerFunc adapts a function to Pinner interface.
type PinnerFunc func(lc LCore) error

// Pin implements Pinner interface.
func (f PinnerFunc) Pin(lc LCore) error {
	return f(lc)
}

// NoPin is a Pinner that does nothing.
var NoPin Pinner = PinnerFunc(func(LCore) error { return nil })

// DefaultPinner is the platform Pinner.
var DefaultPinner Pinner = schedPinner{}
