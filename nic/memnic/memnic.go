// Package memnic provides an in-memory NIC device.
//
// A Device created by New delivers only the frames enqueued by the caller, which suits unit tests.
// The "sim" driver additionally synthesizes UDP frames at line rate on every queue.
package memnic

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/nic"
	"github.com/zyedidia/generic"
	"go.uber.org/zap"
)

var logger = logging.New("memnic")

// DriverName is the name of the simulation driver.
const DriverName = "sim"

// DefaultFrameLen is the synthetic frame length when Config.FrameLen is zero.
const DefaultFrameLen = 1500

func init() {
	nic.RegisterDriver(DriverName, func(cfg nic.Config) (nic.Device, error) {
		if cfg.FrameLen <= 0 {
			cfg.FrameLen = DefaultFrameLen
		}
		dev := New(cfg)
		dev.generate = true
		logger.Info("simulated device", zap.Int("queues", cfg.NumQueues), zap.Int("frame-len", cfg.FrameLen))
		return dev, nil
	})
}

type queue struct {
	mu      sync.Mutex
	pool    *nic.Pool
	pending []int
	rxErr   error
	frame   []byte
}

// Device is an in-memory NIC device.
type Device struct {
	queues   []*queue
	frameLen int
	generate bool
	closed   atomic.Bool

	offloadLock sync.Mutex
	offload     map[int]nic.OffloadRule
	offloadFail map[int]error
}

var _ nic.Device = (*Device)(nil)

// New creates a Device that delivers enqueued frames only.
func New(cfg nic.Config) *Device {
	cfg.ApplyDefaults()
	dev := &Device{
		queues:      make([]*queue, cfg.NumQueues),
		frameLen:    cfg.FrameLen,
		offload:     map[int]nic.OffloadRule{},
		offloadFail: map[int]error{},
	}
	for i := range dev.queues {
		q := &queue{pool: nic.NewPool(cfg.PoolSize, cfg.Dataroom)}
		if cfg.FrameLen > 0 {
			q.frame = makeFrame(cfg.FrameLen, 0)
		}
		dev.queues[i] = q
	}
	return dev
}

func (dev *Device) queue(q int) (*queue, error) {
	if q < 0 || q >= len(dev.queues) {
		return nil, fmt.Errorf("%w: %d", nic.ErrQueue, q)
	}
	return dev.queues[q], nil
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
	rxq, e := dev.queue(q)
	if e != nil {
		return 0, e
	}

	rxq.mu.Lock()
	defer rxq.mu.Unlock()
	if rxq.rxErr != nil {
		e, rxq.rxErr = rxq.rxErr, nil
		return 0, e
	}

	want := len(bufs)
	if !dev.generate {
		want = generic.Min(want, len(rxq.pending))
	}
	n = rxq.pool.Alloc(bufs[:want])
	for i, buf := range bufs[:n] {
		frameLen := dev.frameLen
		if !dev.generate {
			frameLen = rxq.pending[i]
		}
		buf.Len = frameLen
		buf.Data = buf.Data[:generic.Min(frameLen, cap(buf.Data))]
		copy(buf.Data, rxq.frame)
	}
	if !dev.generate {
		rxq.pending = rxq.pending[n:]
	}
	return n, nil
}

// Free implements nic.Device interface.
func (dev *Device) Free(buf *nic.Buffer) {
	nic.FreeBuffer(buf)
}

// ConfigureOffload implements nic.Device interface.
func (dev *Device) ConfigureOffload(rule nic.OffloadRule) error {
	if dev.closed.Load() {
		return nic.ErrClosed
	}
	dev.offloadLock.Lock()
	defer dev.offloadLock.Unlock()
	if e := dev.offloadFail[rule.Tenant]; e != nil {
		return e
	}
	dev.offload[rule.Tenant] = rule

	if rxq, e := dev.queue(rule.Tenant); e == nil && dev.frameLen > 0 {
		rxq.mu.Lock()
		rxq.frame = makeFrame(dev.frameLen, rule.Port)
		rxq.mu.Unlock()
	}
	return nil
}

// Close implements nic.Device interface.
func (dev *Device) Close() error {
	dev.closed.Store(true)
	return nil
}

// Enqueue appends frames of given lengths to a queue.
func (dev *Device) Enqueue(q int, frameLens ...int) {
	rxq, e := dev.queue(q)
	if e != nil {
		panic(e)
	}
	rxq.mu.Lock()
	defer rxq.mu.Unlock()
	rxq.pending = append(rxq.pending, frameLens...)
}

// EnqueueBatches appends nBatches*batchSize frames of frameLen octets to a queue.
func (dev *Device) EnqueueBatches(q, nBatches, batchSize, frameLen int) {
	frameLens := make([]int, nBatches*batchSize)
	for i := range frameLens {
		frameLens[i] = frameLen
	}
	dev.Enqueue(q, frameLens...)
}

// Pending returns number of enqueued frames not yet received.
func (dev *Device) Pending(q int) int {
	rxq, e := dev.queue(q)
	if e != nil {
		panic(e)
	}
	rxq.mu.Lock()
	defer rxq.mu.Unlock()
	return len(rxq.pending)
}

// Outstanding returns number of buffers received from a queue but not yet freed.
func (dev *Device) Outstanding(q int) int {
	rxq, e := dev.queue(q)
	if e != nil {
		panic(e)
	}
	return rxq.pool.Outstanding()
}

// InjectRxError causes the next RxBatch on a queue to fail with e.
func (dev *Device) InjectRxError(q int, e error) {
	rxq, err := dev.queue(q)
	if err != nil {
		panic(err)
	}
	rxq.mu.Lock()
	defer rxq.mu.Unlock()
	rxq.rxErr = e
}

// FailOffload causes ConfigureOffload for a tenant to fail with e.
// Passing nil clears the failure.
func (dev *Device) FailOffload(tenant int, e error) {
	dev.offloadLock.Lock()
	defer dev.offloadLock.Unlock()
	if e == nil {
		delete(dev.offloadFail, tenant)
	} else {
		dev.offloadFail[tenant] = e
	}
}

// Offload returns installed offload rules keyed by tenant ID.
func (dev *Device) Offload() map[int]nic.OffloadRule {
	dev.offloadLock.Lock()
	defer dev.offloadLock.Unlock()
	m := make(map[int]nic.OffloadRule, len(dev.offload))
	for k, v := range dev.offload {
		m[k] = v
	}
	return m
}

var (
	simSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	simDstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	simSrcIP  = net.IPv4(192, 0, 2, 1)
	simDstIP  = net.IPv4(192, 0, 2, 2)
)

// makeFrame builds an Ethernet+IPv4+UDP frame of frameLen octets destined to a UDP port.
func makeFrame(frameLen, port int) []byte {
	eth := &layers.Ethernet{SrcMAC: simSrcMAC, DstMAC: simDstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: simSrcIP, DstIP: simDstIP}
	udp := &layers.UDP{SrcPort: 6363, DstPort: layers.UDPPort(port)}
	udp.SetNetworkLayerForChecksum(ip)

	const headers = 14 + 20 + 8
	payload := make([]byte, generic.Max(frameLen-headers, 0))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if e := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); e != nil {
		logger.Panic("makeFrame", zap.Error(e))
	}
	return buf.Bytes()
}
