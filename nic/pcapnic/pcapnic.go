// Package pcapnic provides a NIC device that replays frames from a capture file.
//
// Frames are dealt round-robin to queues: frame i belongs to queue i%NumQueues.
// Each queue replays its frames in a loop until the device is closed.
package pcapnic

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/nic"
	"github.com/zyedidia/generic"
	"go.uber.org/zap"
)

var logger = logging.New("pcapnic")

// DriverName is the name of the capture replay driver.
const DriverName = "pcap"

func init() {
	nic.RegisterDriver(DriverName, func(cfg nic.Config) (nic.Device, error) { return Open(cfg) })
}

var pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

type frame struct {
	data    []byte
	wireLen int
}

type queue struct {
	mu     sync.Mutex
	pool   *nic.Pool
	frames []frame
	next   int
}

// Device replays frames from a capture file.
type Device struct {
	queues []*queue
	closed atomic.Bool
	rules  sync.Map // tenant => nic.OffloadRule
}

var _ nic.Device = (*Device)(nil)

// Open reads the capture file and creates a Device.
// Both pcap and pcapng formats are accepted.
func Open(cfg nic.Config) (*Device, error) {
	cfg.ApplyDefaults()
	if cfg.PcapFile == "" {
		return nil, errors.New("pcapfile is required")
	}
	f, e := os.Open(cfg.PcapFile)
	if e != nil {
		return nil, e
	}
	defer f.Close()

	frames, e := readFrames(f)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", cfg.PcapFile, e)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: no frames", cfg.PcapFile)
	}

	dev := &Device{queues: make([]*queue, cfg.NumQueues)}
	for i := range dev.queues {
		dev.queues[i] = &queue{pool: nic.NewPool(cfg.PoolSize, cfg.Dataroom)}
	}
	for i, fr := range frames {
		q := dev.queues[i%cfg.NumQueues]
		q.frames = append(q.frames, fr)
	}
	logger.Info("capture loaded", zap.String("filename", cfg.PcapFile), zap.Int("frames", len(frames)))
	return dev, nil
}

type packetDataReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

func readFrames(r io.Reader) (frames []frame, e error) {
	br := bufio.NewReader(r)
	magic, e := br.Peek(len(pcapngMagic))
	if e != nil {
		return nil, e
	}

	var rd packetDataReader
	if bytes.Equal(magic, pcapngMagic) {
		rd, e = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		rd, e = pcapgo.NewReader(br)
	}
	if e != nil {
		return nil, e
	}

	for {
		data, ci, e := rd.ReadPacketData()
		switch {
		case errors.Is(e, io.EOF):
			return frames, nil
		case e != nil:
			return nil, e
		}
		frames = append(frames, frame{
			data:    bytes.Clone(data),
			wireLen: generic.Max(ci.Length, len(data)),
		})
	}
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
	if len(rxq.frames) == 0 {
		return 0, nil
	}

	rxq.mu.Lock()
	defer rxq.mu.Unlock()
	n = rxq.pool.Alloc(bufs)
	for _, buf := range bufs[:n] {
		fr := rxq.frames[rxq.next]
		rxq.next = (rxq.next + 1) % len(rxq.frames)
		buf.Data = buf.Data[:copy(buf.Data[:cap(buf.Data)], fr.data)]
		buf.Len = fr.wireLen
	}
	return n, nil
}

// Free implements nic.Device interface.
func (dev *Device) Free(buf *nic.Buffer) {
	nic.FreeBuffer(buf)
}

// ConfigureOffload implements nic.Device interface.
// Rules are recorded but have no effect on replay.
func (dev *Device) ConfigureOffload(rule nic.OffloadRule) error {
	if dev.closed.Load() {
		return nic.ErrClosed
	}
	if old, loaded := dev.rules.Swap(rule.Tenant, rule); !loaded || old != rule {
		logger.Debug("offload rule recorded", rule.ZapFields()...)
	}
	return nil
}

// Close implements nic.Device interface.
func (dev *Device) Close() error {
	dev.closed.Store(true)
	return nil
}
