package pollthread_test

import (
	"sync/atomic"

	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/pollthread"
	"github.com/panicnic/panicrx/core/testenv"
)

var makeAR = testenv.MakeAR

type testThread struct {
	pollthread.Thread
	stop *pollthread.StopFlag
	n    atomic.Int64
	quit int64 // exit by itself after this many iterations, if positive
	code int
}

func newTestThread(pinner lcore.Pinner) *testThread {
	th := &testThread{stop: pollthread.NewStopFlag()}
	th.Thread = pollthread.New(th.main, th.stop, pinner)
	return th
}

func (th *testThread) main() int {
	th.n.Store(0)
	for th.stop.Continue() {
		if n := th.n.Add(1); th.quit > 0 && n >= th.quit {
			break
		}
	}
	return th.code
}
