package pollthread

import (
	"errors"
	"sync"

	"github.com/panicnic/panicrx/core/lcore"
	"go.uber.org/multierr"
)

// Group supervises a set of threads with join-all / cancel-all semantics.
//
// Done() is closed as soon as any member exits, so that a supervisor can cancel the rest.
// Stop() stops every member in the order they were added and waits for all of them.
type Group struct {
	threads []Thread
	done    chan struct{}
	once    sync.Once
}

// Add appends threads to the group.
// This can only be used before Launch.
func (g *Group) Add(threads ...Thread) {
	g.threads = append(g.threads, threads...)
}

// Launch launches every member.
// Pin failures are returned in pinErrs and do not prevent launching.
// Any other failure stops the members already launched and is returned as e.
func (g *Group) Launch() (pinErrs []*lcore.AffinityError, e error) {
	g.done = make(chan struct{})
	g.once = sync.Once{}
	for i, th := range g.threads {
		if e := th.Launch(); e != nil {
			var ae *lcore.AffinityError
			if !errors.As(e, &ae) {
				for _, launched := range g.threads[:i] {
					launched.Stop()
				}
				return pinErrs, e
			}
			pinErrs = append(pinErrs, ae)
		}
		go g.watch(th.Exited())
	}
	return pinErrs, nil
}

func (g *Group) watch(exited <-chan struct{}) {
	<-exited
	g.once.Do(func() { close(g.done) })
}

// Done returns a channel that is closed when any member exits.
func (g *Group) Done() <-chan struct{} {
	return g.done
}

// Stop stops all members and waits for them to exit.
func (g *Group) Stop() error {
	errs := []error{}
	for _, th := range g.threads {
		errs = append(errs, th.Stop())
	}
	return multierr.Combine(errs...)
}
