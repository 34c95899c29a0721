// Package rxpoll implements the per-queue busy-poll receive loop.
package rxpoll

import (
	"errors"
	"fmt"

	"github.com/panicnic/panicrx/container/statstable"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/core/pollthread"
	"github.com/panicnic/panicrx/nic"
	"go.uber.org/zap"
)

var logger = logging.New("rxpoll")

// Poller drains one receive queue and accounts its traffic into a stats table slot.
//
// The loop never blocks and never logs.
// Packet and byte counts accumulate locally and are added to the shared slot
// when the local byte count exceeds Config.FlushBytes, and once more when the loop exits.
//
// RxBatch errors other than nic.ErrClosed are counted in LoadStat.Errors and polling continues.
// nic.ErrClosed ends the loop.
type Poller struct {
	pollthread.Thread
	dev      nic.Device
	queue    int
	table    *statstable.Table
	cfg      Config
	stop     *pollthread.StopFlag
	loadStat pollthread.LoadStatCounters
}

var _ pollthread.ThreadWithLoadStat = (*Poller)(nil)

// New creates a Poller for a queue.
// If pinner is nil, lcore.DefaultPinner is used.
func New(dev nic.Device, queue int, table *statstable.Table, cfg Config, pinner lcore.Pinner) (p *Poller, e error) {
	cfg.ApplyDefaults()
	if e = cfg.Validate(); e != nil {
		return nil, e
	}
	if queue < 0 || queue >= dev.NumQueues() || queue >= table.Len() {
		return nil, fmt.Errorf("%w: %d", nic.ErrQueue, queue)
	}

	p = &Poller{
		dev:   dev,
		queue: queue,
		table: table,
		cfg:   cfg,
		stop:  pollthread.NewStopFlag(),
	}
	p.Thread = pollthread.New(p.main, p.stop, pinner)
	return p, nil
}

// Queue returns the queue index.
func (p *Poller) Queue() int {
	return p.queue
}

// ThreadLoadStat returns published poll statistics.
func (p *Poller) ThreadLoadStat() pollthread.LoadStat {
	return p.loadStat.Read()
}

func (p *Poller) main() int {
	var (
		bufs           = make([]*nic.Buffer, p.cfg.BatchSize)
		flushBytes     = uint64(p.cfg.FlushBytes)
		packets, bytes uint64
		ls             pollthread.LoadStat
		polls          int
	)
	publish := func() {
		p.loadStat.Publish(ls)
		ls, polls = pollthread.LoadStat{}, 0
	}
	flush := func() {
		if packets > 0 {
			p.table.Add(p.queue, packets, bytes)
			packets, bytes = 0, 0
		}
		publish()
	}

	for p.stop.Continue() {
		n, e := p.dev.RxBatch(p.queue, bufs)
		for i, buf := range bufs[:n] {
			packets++
			bytes += uint64(buf.Len)
			p.dev.Free(buf)
			bufs[i] = nil
		}

		switch {
		case errors.Is(e, nic.ErrClosed):
			flush()
			logger.Info("device closed, poller exiting", zap.Int("queue", p.queue), p.LCore().ZapField("lc"))
			return 0
		case e != nil:
			ls.Errors++
		case n == 0:
			ls.EmptyPolls++
		default:
			ls.ValidPolls++
			ls.Items += uint64(n)
		}

		polls++
		switch {
		case bytes > flushBytes:
			flush()
		case polls >= publishPolls:
			publish()
		}
	}
	flush()
	return 0
}
