// Package pollthread provides a worker thread abstraction bound to an lcore.
package pollthread

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/logging"
	"go.uber.org/zap"
)

var logger = logging.New("pollthread")

// ErrRunning indicates an error condition when a function expects the thread to be stopped.
var ErrRunning = errors.New("operation not permitted when thread is running")

// Thread represents a procedure running on a dedicated goroutine, optionally pinned to an lcore.
type Thread interface {
	// LCore returns assigned lcore.
	LCore() lcore.LCore

	// SetLCore assigns an lcore.
	// This can only be used when the thread is stopped.
	// If no valid lcore is assigned, the thread runs unpinned.
	SetLCore(lc lcore.LCore)

	// IsRunning indicates whether the thread is running.
	IsRunning() bool

	// Launch launches the thread.
	// It returns after the thread has attempted to pin itself.
	// If pinning failed, the thread keeps running unpinned and *lcore.AffinityError is returned.
	Launch() error

	// Stop requests the thread to stop and waits for it to exit.
	Stop() error

	// Exited returns a channel that is closed when the thread exits.
	// It is valid only after Launch.
	Exited() <-chan struct{}
}

// New creates a Thread.
// main is the thread procedure; it should return when stop is requested.
// If pinner is nil, lcore.DefaultPinner is used.
func New(main func() int, stop Stopper, pinner lcore.Pinner) Thread {
	if pinner == nil {
		pinner = lcore.DefaultPinner
	}
	return &threadImpl{
		main:   main,
		stop:   stop,
		pinner: pinner,
	}
}

type threadImpl struct {
	lc       lcore.LCore
	main     func() int
	stop     Stopper
	pinner   lcore.Pinner
	running  atomic.Bool
	exited   chan struct{}
	exitCode int
	stopped  bool
}

func (th *threadImpl) LCore() lcore.LCore {
	return th.lc
}

func (th *threadImpl) SetLCore(lc lcore.LCore) {
	if th.IsRunning() {
		panic(ErrRunning)
	}
	th.lc = lc
}

func (th *threadImpl) IsRunning() bool {
	return th.running.Load()
}

func (th *threadImpl) Launch() error {
	if th.IsRunning() {
		return ErrRunning
	}

	exited, pinned := make(chan struct{}), make(chan error, 1)
	th.exited, th.stopped = exited, false
	th.running.Store(true)
	go func() {
		defer close(exited)
		if th.lc.Valid() {
			pinned <- th.pinner.Pin(th.lc)
		} else {
			pinned <- nil
		}
		th.exitCode = th.main()
		th.running.Store(false)
	}()

	if e := <-pinned; e != nil {
		var ae *lcore.AffinityError
		if !errors.As(e, &ae) {
			e = &lcore.AffinityError{LCore: th.lc, Err: e}
		}
		logger.Warn("lcore pin failed, thread running unpinned", th.lc.ZapField("lc"), zap.Error(e))
		return e
	}
	return nil
}

func (th *threadImpl) Stop() error {
	if th.exited == nil || th.stopped {
		return nil
	}
	th.stop.BeforeWait()
	<-th.exited
	th.stop.AfterWait()
	th.stopped = true
	if th.exitCode != 0 {
		return fmt.Errorf("lcore %s exit code %d", th.lc, th.exitCode)
	}
	return nil
}

func (th *threadImpl) Exited() <-chan struct{} {
	return th.exited
}
