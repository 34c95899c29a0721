package rxreport

import (
	"time"

	"github.com/panicnic/panicrx/container/statstable"
	"github.com/panicnic/panicrx/core/pollthread"
	"go.uber.org/zap"
)

// Queue identifies a reported queue.
type Queue struct {
	Queue  int
	Tenant int    // tenant ID, or -1 if no tenant maps to this queue
	Label  string // tenant key in configuration

	// LoadStat optionally returns poll statistics of the queue's poller.
	LoadStat func() pollthread.LoadStat
}

// Line is one queue's throughput over one report interval.
type Line struct {
	Queue            int           `json:"queue"`
	Tenant           int           `json:"tenant"`
	Label            string        `json:"label,omitempty"`
	Packets          uint64        `json:"packets"`
	Bytes            uint64        `json:"bytes"`
	Elapsed          time.Duration `json:"elapsed"`
	Megabits         float64       `json:"megabits"`
	Gbps             float64       `json:"gbps"`
	PacketsPerSecond float64       `json:"pps"`
	Errors           uint64        `json:"errors"`       // RxBatch errors during the interval
	ItemsPerPoll     float64       `json:"itemsPerPoll"` // average batch size during the interval
}

// ZapFields returns zap fields for logging.
func (l Line) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Int("queue", l.Queue),
		zap.Int("tenant", l.Tenant),
		zap.Uint64("packets", l.Packets),
		zap.Uint64("bytes", l.Bytes),
		zap.Duration("elapsed", l.Elapsed),
		zap.Float64("gbps", l.Gbps),
		zap.Float64("pps", l.PacketsPerSecond),
	}
}

// Report is the result of one reporter pass.
type Report struct {
	Time  time.Time `json:"time"`
	Lines []Line    `json:"lines"`
	Final bool      `json:"final"` // emitted at shutdown
}

// Compute derives interval throughput from a slot snapshot.
//
//	megabits = bytes * 8 / 1e6
//	gbps = megabits / (elapsedSeconds * 1000)
//	pps = packets / elapsedSeconds
//
// If elapsed is not positive, rates are zero.
func Compute(c statstable.Counters, now time.Time) (l Line) {
	l.Packets, l.Bytes = c.Packets, c.Bytes
	l.Elapsed = c.Elapsed(now)
	l.Megabits = float64(c.Bytes) * 8 / 1e6
	if sec := l.Elapsed.Seconds(); sec > 0 {
		l.Gbps = l.Megabits / (sec * 1000)
		l.PacketsPerSecond = float64(c.Packets) / sec
	}
	return l
}
