package pollthread_test

import (
	"errors"
	"testing"
	"time"

	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/pollthread"
)

func TestGroup(t *testing.T) {
	assert, require := makeAR(t)

	errPin := errors.New("pin refused")
	pinner := lcore.PinnerFunc(func(lc lcore.LCore) error {
		if lc.ID() == 1 {
			return &lcore.AffinityError{LCore: lc, Err: errPin}
		}
		return nil
	})

	var g pollthread.Group
	threads := []*testThread{newTestThread(pinner), newTestThread(pinner), newTestThread(pinner)}
	for i, th := range threads {
		th.SetLCore(lcore.FromID(i))
		g.Add(th)
	}

	pinErrs, e := g.Launch()
	require.NoError(e)
	require.Len(pinErrs, 1)
	assert.Equal(1, pinErrs[0].LCore.ID())

	select {
	case <-g.Done():
		assert.Fail("Done() closed while all threads are running")
	case <-time.After(10 * time.Millisecond):
	}

	require.NoError(g.Stop())
	for _, th := range threads {
		assert.False(th.IsRunning())
		assert.Greater(th.n.Load(), int64(0))
	}
}

func TestGroupMemberExit(t *testing.T) {
	assert, require := makeAR(t)

	var g pollthread.Group
	forever, quitter := newTestThread(lcore.NoPin), newTestThread(lcore.NoPin)
	quitter.quit, quitter.code = 1000, 1
	g.Add(forever, quitter)

	_, e := g.Launch()
	require.NoError(e)

	select {
	case <-g.Done():
	case <-time.After(5 * time.Second):
		require.Fail("Done() not closed after member exit")
	}
	assert.True(forever.IsRunning())

	e = g.Stop()
	assert.ErrorContains(e, "exit code 1")
	assert.False(forever.IsRunning())
}
