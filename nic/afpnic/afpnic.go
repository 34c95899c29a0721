//go:build linux

package afpnic

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/nic"
	"go.uber.org/zap"
)

var logger = logging.New("afpnic")

// Socket timeouts.
//
// PollTimeout is zero so that RxBatch returns at once when the ring is empty.
// BlockTimeout bounds how long a partially filled TPACKET_V3 block stays invisible to RxBatch.
const (
	PollTimeout  = 0
	BlockTimeout = time.Millisecond
)

func init() {
	nic.RegisterDriver(DriverName, func(cfg nic.Config) (nic.Device, error) { return Open(cfg) })
}

type queue struct {
	tp   *afpacket.TPacket
	pool *nic.Pool
}

// Device receives packets from AF_PACKET sockets.
type Device struct {
	netif  *NetIntf
	queues []queue
	closed atomic.Bool

	rulesLock sync.Mutex
	rules     map[int]nic.OffloadRule
}

var _ nic.Device = (*Device)(nil)

// Open creates a Device.
// cfg.Netif takes precedence over cfg.PCIAddr.
func Open(cfg nic.Config) (dev *Device, e error) {
	cfg.ApplyDefaults()
	ifname := cfg.Netif
	if ifname == "" {
		if cfg.PCIAddr.Empty() {
			return nil, errors.New("either netif or pcieaddr must be specified")
		}
		if ifname, e = NetifFromPCI(cfg.PCIAddr); e != nil {
			return nil, e
		}
	}

	n, e := NetIntfByName(ifname)
	if e != nil {
		return nil, e
	}
	if e = n.EnsureLinkUp(); e != nil {
		return nil, e
	}
	n.CheckChannels(cfg.NumQueues)

	dev = &Device{
		netif: n,
		rules: map[int]nic.OffloadRule{},
	}
	fanoutID := uint16(n.Index)
	for i := 0; i < cfg.NumQueues; i++ {
		tp, e := afpacket.NewTPacket(
			afpacket.OptInterface(n.Name),
			afpacket.OptPollTimeout(PollTimeout),
			afpacket.OptBlockTimeout(BlockTimeout),
		)
		if e == nil && cfg.NumQueues > 1 {
			if e = tp.SetFanout(afpacket.FanoutHash, fanoutID); e != nil {
				tp.Close()
			}
		}
		if e != nil {
			dev.Close()
			return nil, fmt.Errorf("afpacket queue %d on %s: %w", i, n.Name, e)
		}
		dev.queues = append(dev.queues, queue{
			tp:   tp,
			pool: nic.NewPool(cfg.PoolSize, cfg.Dataroom),
		})
	}
	n.logger.Info("AF_PACKET sockets opened", zap.Int("queues", len(dev.queues)))
	return dev, nil
}

// NumQueues implements nic.Device interface.
func (dev *Device) NumQueues() int {
	return len(dev.queues)
}

// RxBatch implements nic.Device interface.
func (dev *Device) RxBatch(q int, bufs []*nic.Buffer) (n int, e error) {
	if dev.closed.Load() {
		return 0, nic.ErrClosed
	}
	if q < 0 || q >= len(dev.queues) {
		return 0, fmt.Errorf("%w: %d", nic.ErrQueue, q)
	}
	rxq := dev.queues[q]

	nAlloc := rxq.pool.Alloc(bufs)
	defer func() {
		for _, buf := range bufs[n:nAlloc] {
			rxq.pool.Free(buf)
		}
	}()

	for n < nAlloc {
		buf := bufs[n]
		ci, e := rxq.tp.ReadPacketDataTo(buf.Data[:cap(buf.Data)])
		switch {
		case errors.Is(e, afpacket.ErrTimeout):
			return n, nil
		case e != nil:
			return n, e
		}
		buf.Data = buf.Data[:ci.CaptureLength]
		buf.Len = ci.Length
		n++
	}
	return n, nil
}

// Free implements nic.Device interface.
func (dev *Device) Free(buf *nic.Buffer) {
	nic.FreeBuffer(buf)
}

// ConfigureOffload implements nic.Device interface.
// AF_PACKET has no offload engine, so rules are recorded in software only.
func (dev *Device) ConfigureOffload(rule nic.OffloadRule) error {
	if dev.closed.Load() {
		return nic.ErrClosed
	}
	dev.rulesLock.Lock()
	defer dev.rulesLock.Unlock()
	if old, ok := dev.rules[rule.Tenant]; !ok || old != rule {
		dev.netif.logger.Info("offload rule recorded", rule.ZapFields()...)
	}
	dev.rules[rule.Tenant] = rule
	return nil
}

// Close implements nic.Device interface.
// Pollers must have stopped before Close is invoked.
func (dev *Device) Close() error {
	if dev.closed.Swap(true) {
		return nil
	}
	for i, rxq := range dev.queues {
		if stats, e := rxq.tp.Stats(); e == nil {
			dev.netif.logger.Debug("socket stats", zap.Int("queue", i), zap.Int64("packets", stats.Packets), zap.Int64("polls", stats.Polls))
		}
		rxq.tp.Close()
	}
	return nil
}
