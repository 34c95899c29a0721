// Package rxdp assembles the receive data plane: offload provisioning, pollers, and reporter.
package rxdp

import (
	"fmt"
	"slices"
	"time"

	"github.com/panicnic/panicrx/app/offload"
	"github.com/panicnic/panicrx/app/rxconfig"
	"github.com/panicnic/panicrx/app/rxpoll"
	"github.com/panicnic/panicrx/app/rxreport"
	"github.com/panicnic/panicrx/container/statstable"
	"github.com/panicnic/panicrx/core/hwinfo"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/core/pollthread"
	"github.com/panicnic/panicrx/nic"
	"go.uber.org/zap"
)

var logger = logging.New("rxdp")

// Options contains optional DataPlane dependencies.
type Options struct {
	// Allocator assigns lcores to pollers.
	// Default is an allocator over hwinfo.Default.
	Allocator *lcore.Allocator

	// Pinner pins poller threads.
	// Default is lcore.DefaultPinner.
	Pinner lcore.Pinner

	// Sinks receive reports.
	Sinks []rxreport.Sink
}

// DataPlane is the receive data plane.
type DataPlane struct {
	dev      nic.Device
	table    *statstable.Table
	la       *lcore.Allocator
	lcores   []lcore.LCore
	pollers  []*rxpoll.Poller
	reporter *rxreport.Reporter
	group    pollthread.Group

	allocErrs    []*lcore.AffinityError
	affinityErrs []*lcore.AffinityError
}

// New provisions tenant offload rules and creates poller and reporter threads.
// Threads are not launched until Launch is invoked.
// On failure, no thread is created; a provisioning failure is returned as *nic.DeviceError.
func New(cfg *rxconfig.Config, dev nic.Device, opts Options) (dp *DataPlane, e error) {
	nQueues := cfg.Driver.CoreCount
	if dev.NumQueues() < nQueues {
		return nil, fmt.Errorf("device has %d queues, %d required", dev.NumQueues(), nQueues)
	}

	if e = offload.ProvisionAll(dev, cfg.Tenants); e != nil {
		return nil, e
	}
	for id, ep := range cfg.Endpoints() {
		logger.Info("tenant endpoint", zap.Int("tenant", id), zap.Stringer("endpoint", ep))
	}

	dp = &DataPlane{
		dev:   dev,
		table: statstable.New(nQueues, time.Now()),
		la:    opts.Allocator,
	}
	if dp.la == nil {
		dp.la = lcore.NewAllocator(hwinfo.Default)
	}
	dp.lcores, dp.allocErrs = dp.la.AllocQueues(nQueues, cfg.CoreMasks())

	queues := make([]rxreport.Queue, nQueues)
	for q, lc := range dp.lcores {
		p, e := rxpoll.New(dev, q, dp.table, cfg.Poll, opts.Pinner)
		if e != nil {
			dp.freeLCores()
			return nil, fmt.Errorf("rxpoll.New(%d): %w", q, e)
		}
		p.SetLCore(lc)
		dp.pollers = append(dp.pollers, p)

		queues[q] = rxreport.Queue{Queue: q, Tenant: -1, LoadStat: p.ThreadLoadStat}
		if t, ok := cfg.Tenants.ByQueue(q); ok {
			queues[q].Tenant, queues[q].Label = t.ID, t.Key
		}
	}

	if dp.reporter, e = rxreport.New(dp.table, queues, cfg.Report, opts.Sinks...); e != nil {
		dp.freeLCores()
		return nil, fmt.Errorf("rxreport.New: %w", e)
	}

	for _, p := range dp.pollers {
		dp.group.Add(p)
	}
	dp.group.Add(dp.reporter)
	return dp, nil
}

// Pollers returns poller threads, indexed by queue.
func (dp *DataPlane) Pollers() []*rxpoll.Poller {
	return dp.pollers
}

// Reporter returns the reporter thread.
func (dp *DataPlane) Reporter() *rxreport.Reporter {
	return dp.reporter
}

// Table returns the stats table.
func (dp *DataPlane) Table() *statstable.Table {
	return dp.table
}

// Launch launches pollers and then the reporter.
// Pin failures do not fail the launch; they are logged and available from AffinityErrors.
func (dp *DataPlane) Launch() error {
	pinErrs, e := dp.group.Launch()
	dp.affinityErrs = append(slices.Clone(dp.allocErrs), pinErrs...)
	for _, ae := range dp.affinityErrs {
		logger.Warn("poller running unpinned, throughput not guaranteed", ae.LCore.ZapField("lc"), zap.Error(ae.Err))
	}
	if e != nil {
		return e
	}
	logger.Info("data plane launched",
		zap.Int("pollers", len(dp.pollers)),
		zap.Int("unpinned", len(dp.affinityErrs)),
	)
	return nil
}

// AffinityErrors returns lcore allocation failures from New and pin failures from the last Launch.
// Each entry is a poller that runs unpinned.
func (dp *DataPlane) AffinityErrors() []*lcore.AffinityError {
	return dp.affinityErrs
}

// Done returns a channel that is closed when any thread exits on its own.
// It is valid only after Launch.
func (dp *DataPlane) Done() <-chan struct{} {
	return dp.group.Done()
}

// Close stops all threads, waits for them to exit, and releases lcores.
// The reporter emits a final report.
// The device is not closed.
func (dp *DataPlane) Close() error {
	e := dp.group.Stop()
	dp.freeLCores()
	logger.Info("data plane stopped", zap.Error(e))
	return e
}

func (dp *DataPlane) freeLCores() {
	for _, lc := range dp.lcores {
		dp.la.Free(lc)
	}
	dp.lcores = nil
}
