package rxpoll_test

import (
	"errors"
	"testing"
	"time"

	"github.com/panicnic/panicrx/app/rxpoll"
	"github.com/panicnic/panicrx/container/statstable"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/nic"
	"github.com/panicnic/panicrx/nic/memnic"
)

func TestThresholdFlush(t *testing.T) {
	assert, require := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 1})
	dev.EnqueueBatches(0, 20, 64, 1500)
	table := statstable.New(1, time.Now())

	p, e := rxpoll.New(dev, 0, table, rxpoll.Config{}, lcore.NoPin)
	require.NoError(e)
	assert.Equal(0, p.Queue())
	require.NoError(p.Launch())

	require.Eventually(func() bool { return dev.Pending(0) == 0 && dev.Outstanding(0) == 0 },
		5*time.Second, time.Millisecond)

	// 11 batches exceed 1000000 bytes; remaining 9 batches stay local until stop
	before := table.Peek(0)
	assert.EqualValues(704, before.Packets)
	assert.EqualValues(1056000, before.Bytes)

	require.NoError(p.Stop())
	after := table.Peek(0)
	assert.EqualValues(1280, after.Packets)
	assert.EqualValues(1920000, after.Bytes)

	ls := p.ThreadLoadStat()
	assert.EqualValues(20, ls.ValidPolls)
	assert.EqualValues(1280, ls.Items)
	assert.EqualValues(0, ls.Errors)
	assert.InDelta(64.0, ls.ItemsPerPoll(), 0.01)
}

func TestSmallThreshold(t *testing.T) {
	assert, require := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 2})
	dev.Enqueue(1, 100, 200, 300)
	table := statstable.New(2, time.Now())

	p, e := rxpoll.New(dev, 1, table, rxpoll.Config{BatchSize: 1, FlushBytes: 150}, lcore.NoPin)
	require.NoError(e)
	require.NoError(p.Launch())
	require.Eventually(func() bool { return table.Peek(1).Bytes == 600 }, 5*time.Second, time.Millisecond)
	require.NoError(p.Stop())

	assert.EqualValues(3, table.Peek(1).Packets)
	assert.Zero(table.Peek(0).Bytes)
	assert.Zero(dev.Outstanding(1))
}

func TestRxErrorContinues(t *testing.T) {
	assert, require := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 1})
	dev.InjectRxError(0, errors.New("rx fault"))
	dev.EnqueueBatches(0, 2, 64, 1000)
	table := statstable.New(1, time.Now())

	p, e := rxpoll.New(dev, 0, table, rxpoll.Config{}, lcore.NoPin)
	require.NoError(e)
	require.NoError(p.Launch())
	require.Eventually(func() bool { return dev.Pending(0) == 0 && dev.Outstanding(0) == 0 },
		5*time.Second, time.Millisecond)
	assert.True(p.IsRunning())
	require.NoError(p.Stop())

	assert.EqualValues(128000, table.Peek(0).Bytes)
	assert.EqualValues(1, p.ThreadLoadStat().Errors)
}

func TestDeviceClosed(t *testing.T) {
	assert, require := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 1})
	dev.Enqueue(0, 100, 100, 100)
	table := statstable.New(1, time.Now())

	p, e := rxpoll.New(dev, 0, table, rxpoll.Config{}, lcore.NoPin)
	require.NoError(e)
	require.NoError(p.Launch())
	require.Eventually(func() bool { return dev.Pending(0) == 0 }, 5*time.Second, time.Millisecond)

	dev.Close()
	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		require.FailNow("poller did not exit after device close")
	}
	assert.False(p.IsRunning())
	assert.EqualValues(300, table.Peek(0).Bytes)
	assert.NoError(p.Stop())
}

func TestNewErrors(t *testing.T) {
	assert, _ := makeAR(t)

	dev := memnic.New(nic.Config{NumQueues: 2})
	table := statstable.New(1, time.Now())

	_, e := rxpoll.New(dev, 1, table, rxpoll.Config{}, nil)
	assert.ErrorIs(e, nic.ErrQueue)
	_, e = rxpoll.New(dev, -1, table, rxpoll.Config{}, nil)
	assert.ErrorIs(e, nic.ErrQueue)
	_, e = rxpoll.New(dev, 0, table, rxpoll.Config{BatchSize: rxpoll.MaxBatchSize + 1}, nil)
	assert.ErrorIs(e, rxpoll.ErrBatchSize)
	_, e = rxpoll.New(dev, 0, table, rxpoll.Config{FlushBytes: -1}, nil)
	assert.ErrorIs(e, rxpoll.ErrFlushBytes)
}
