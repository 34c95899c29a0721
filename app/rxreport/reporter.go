// Package rxreport periodically snapshots per-queue counters and reports throughput.
package rxreport

import (
	"fmt"
	"sync"
	"time"

	"github.com/panicnic/panicrx/container/statstable"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/core/pollthread"
	"github.com/panicnic/panicrx/core/runningstat"
	"go.uber.org/zap"
)

var logger = logging.New("rxreport")

// Sink receives reports.
type Sink interface {
	Emit(r Report) error
}

// Reporter wakes up every Config.Interval, snapshots the stats table, and emits a Report to each Sink.
// A wakeup sooner than Config.MinElapsed after the previous report is skipped.
// When stopped, it emits one final report.
type Reporter struct {
	pollthread.Thread
	cfg    Config
	table  *statstable.Table
	queues []Queue
	sinks  []Sink
	stop   *pollthread.StopFlag

	mu       sync.Mutex
	last     time.Time
	lastLoad []pollthread.LoadStat
	gbps     []runningstat.RunningStat
}

// New creates a Reporter.
// queues lists the queues to report, normally one per configured queue.
func New(table *statstable.Table, queues []Queue, cfg Config, sinks ...Sink) (r *Reporter, e error) {
	cfg.ApplyDefaults()
	seen := map[int]bool{}
	for _, q := range queues {
		if q.Queue < 0 || q.Queue >= table.Len() {
			return nil, fmt.Errorf("queue %d out of range [0,%d)", q.Queue, table.Len())
		}
		if seen[q.Queue] {
			return nil, fmt.Errorf("duplicate queue %d", q.Queue)
		}
		seen[q.Queue] = true
	}

	r = &Reporter{
		cfg:      cfg,
		table:    table,
		queues:   queues,
		sinks:    sinks,
		stop:     pollthread.NewStopFlag(),
		last:     time.Now(),
		lastLoad: make([]pollthread.LoadStat, len(queues)),
		gbps:     make([]runningstat.RunningStat, len(queues)),
	}
	r.Thread = pollthread.New(r.main, r.stop, lcore.NoPin)
	return r, nil
}

// Queues returns reported queues.
func (r *Reporter) Queues() []Queue {
	return r.queues
}

func (r *Reporter) main() int {
	interval := r.cfg.Interval.Duration()
	for r.stop.Sleep(interval) {
		r.Tick(time.Now())
	}
	r.Final(time.Now())
	return 0
}

// GbpsStat returns statistics of per-interval throughput of each queue, excluding the final report.
func (r *Reporter) GbpsStat() []runningstat.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]runningstat.Snapshot, len(r.gbps))
	for i, s := range r.gbps {
		list[i] = s.Read()
	}
	return list
}

// Tick performs one wakeup.
// If at least MinElapsed has passed since the previous report, it snapshots every queue,
// emits the report to sinks, and returns true.
func (r *Reporter) Tick(now time.Time) (rpt Report, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.last) < r.cfg.MinElapsed.Duration() {
		return rpt, false
	}
	return r.report(now, false), true
}

// Final emits a report regardless of elapsed time.
func (r *Reporter) Final(now time.Time) Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report(now, true)
}

func (r *Reporter) report(now time.Time, final bool) (rpt Report) {
	rpt = Report{
		Time:  now,
		Lines: make([]Line, len(r.queues)),
		Final: final,
	}
	for i, q := range r.queues {
		line := Compute(r.table.Snapshot(q.Queue, now), now)
		line.Queue, line.Tenant, line.Label = q.Queue, q.Tenant, q.Label
		if q.LoadStat != nil {
			ls := q.LoadStat()
			diff := ls.Sub(r.lastLoad[i])
			r.lastLoad[i] = ls
			line.Errors, line.ItemsPerPoll = diff.Errors, diff.ItemsPerPoll()
			if diff.Errors > 0 {
				logger.Warn("receive errors", zap.Int("queue", q.Queue), zap.Uint64("errors", diff.Errors))
			}
		}
		rpt.Lines[i] = line

		if final {
			logger.Info("throughput summary", append([]zap.Field{zap.Int("queue", q.Queue)}, r.gbps[i].Read().ZapFields("gbps-")...)...)
		} else if line.Elapsed > 0 {
			r.gbps[i].Push(line.Gbps)
		}
	}
	r.last = now

	for _, sink := range r.sinks {
		if e := sink.Emit(rpt); e != nil {
			logger.Warn("sink error", zap.Error(e))
		}
	}
	return rpt
}
