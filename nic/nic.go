// Package nic defines the receive-side NIC device abstraction consumed by pollers.
//
// A Device delivers received packets in batches per hardware queue, takes packet buffers back,
// and accepts per-tenant offload-chain rules.
// Drivers register themselves via RegisterDriver and are selected by Config.Driver.
package nic

import (
	"fmt"
	"sort"
	"sync"

	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/core/pciaddr"
	"go.uber.org/zap"
)

var logger = logging.New("nic")

// Device is a multi-queue receive device.
//
// RxBatch and Free for a queue are invoked only by the poller that owns the queue.
// ConfigureOffload is invoked during startup, before any poller runs.
type Device interface {
	// NumQueues returns number of receive queues.
	NumQueues() int

	// RxBatch receives up to len(bufs) packets from a queue.
	// It never blocks for long: zero packets is a normal result.
	// Returned buffers must be released with Free.
	// ErrClosed indicates the device has been closed.
	RxBatch(queue int, bufs []*Buffer) (n int, e error)

	// Free releases a packet buffer back to the device.
	Free(buf *Buffer)

	// ConfigureOffload installs a tenant's offload-chain rule.
	// Installing an identical rule again has no observable effect.
	ConfigureOffload(rule OffloadRule) error

	// Close releases the device.
	Close() error
}

// OffloadRule is a tenant's offload-chain selection.
type OffloadRule struct {
	Tenant     int `json:"tenant"`
	Chain      int `json:"chain"`
	QueueDepth int `json:"queueDepth"`
	Priority   int `json:"priority"`
	Port       int `json:"port"`
}

// ZapFields returns zap fields for logging.
func (r OffloadRule) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Int("tenant", r.Tenant),
		zap.Int("chain", r.Chain),
		zap.Int("queue-depth", r.QueueDepth),
		zap.Int("priority", r.Priority),
		zap.Int("port", r.Port),
	}
}

// Config contains device initialization parameters.
type Config struct {
	Driver    string             // driver name
	PCIAddr   pciaddr.PCIAddress // device PCI address
	Netif     string             // kernel network interface name, overrides PCIAddr lookup
	PcapFile  string             // capture file for replay driver
	NumQueues int                // number of receive queues, normally the core count
	PoolSize  int                // packet buffers per queue, 0 means DefaultPoolSize
	Dataroom  int                // bytes per packet buffer, 0 means DefaultDataroom
	FrameLen  int                // synthetic frame length for simulation driver
}

// Defaults for Config.
const (
	DefaultPoolSize = 1024
	DefaultDataroom = 2048
)

// ApplyDefaults fills zero fields with defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.Dataroom <= 0 {
		cfg.Dataroom = DefaultDataroom
	}
}

// OpenFunc opens a device with a specific driver.
type OpenFunc func(cfg Config) (Device, error)

var (
	driversLock sync.Mutex
	drivers     = map[string]OpenFunc{}
)

// RegisterDriver registers a driver.
// This should be invoked during package initialization.
func RegisterDriver(name string, open OpenFunc) {
	driversLock.Lock()
	defer driversLock.Unlock()
	if _, ok := drivers[name]; ok {
		panic("duplicate driver " + name)
	}
	drivers[name] = open
}

// Drivers returns registered driver names.
func Drivers() (names []string) {
	driversLock.Lock()
	defer driversLock.Unlock()
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open initializes a device.
// Failure is reported as *DeviceError.
func Open(cfg Config) (Device, error) {
	cfg.ApplyDefaults()
	if cfg.NumQueues <= 0 {
		return nil, &DeviceError{Op: "init", Tenant: -1, Err: fmt.Errorf("bad queue count %d", cfg.NumQueues)}
	}

	driversLock.Lock()
	open := drivers[cfg.Driver]
	driversLock.Unlock()
	if open == nil {
		return nil, &DeviceError{Op: "init", Tenant: -1, Err: fmt.Errorf("unknown driver %q, available: %v", cfg.Driver, Drivers())}
	}

	dev, e := open(cfg)
	if e != nil {
		return nil, &DeviceError{Op: "init", Tenant: -1, Err: e}
	}
	logger.Info("device initialized",
		zap.String("driver", cfg.Driver),
		zap.Stringer("pci", cfg.PCIAddr),
		zap.Int("queues", dev.NumQueues()),
	)
	return dev, nil
}
