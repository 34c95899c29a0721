// Package rxconfig loads and validates receive application configuration.
package rxconfig

import (
	"fmt"
	"net/netip"

	"github.com/panicnic/panicrx/app/rxpoll"
	"github.com/panicnic/panicrx/app/rxreport"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/core/nnduration"
	"github.com/panicnic/panicrx/core/pciaddr"
	"github.com/panicnic/panicrx/nic"
	"go.uber.org/multierr"
)

var logger = logging.New("rxconfig")

// Driver names.
const (
	DriverSim      = "sim"
	DriverPcap     = "pcap"
	DriverAfPacket = "afpacket"

	DefaultDriver = DriverSim
)

// DriverConfig selects and initializes the NIC device.
type DriverConfig struct {
	// PCIAddr is the device PCI address.
	PCIAddr string `json:"pcieaddr"`

	// CoreCount is the number of receive queues, each with one poller.
	CoreCount int `json:"corecount"`

	Driver   string `json:"driver,omitempty"`
	Netif    string `json:"netif,omitempty"`
	PcapFile string `json:"pcapfile,omitempty"`
	FrameLen int    `json:"framelen,omitempty"`

	// Settle is the delay between device initialization and offload provisioning.
	Settle nnduration.Milliseconds `json:"settle,omitempty"`
}

// PanicConfig contains offload engine scheduler settings.
// They are carried for completeness and logged at startup.
type PanicConfig struct {
	SchedPolicy string `json:"sche_policy,omitempty"`
	EngineNum   int    `json:"engine_num,omitempty"`
}

// Config is the receive application configuration.
type Config struct {
	Driver  DriverConfig    `json:"driverconfig"`
	Panic   PanicConfig     `json:"panicconfig"`
	Tenants TenantList      `json:"tenantconfig"`
	Poll    rxpoll.Config   `json:"pollconfig"`
	Report  rxreport.Config `json:"reportconfig"`
}

// ApplyDefaults fills zero fields with defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Driver.Driver == "" {
		cfg.Driver.Driver = DefaultDriver
	}
	cfg.Poll.ApplyDefaults()
	cfg.Report.ApplyDefaults()
}

// Validate checks semantic constraints that the schema cannot express.
// It should be invoked after ApplyDefaults.
func (cfg Config) Validate() (e error) {
	d := cfg.Driver
	if _, err := pciaddr.Parse(d.PCIAddr); err != nil {
		e = multierr.Append(e, fmt.Errorf("driverconfig.pcieaddr: %w", err))
	}
	if d.CoreCount < 1 || d.CoreCount > lcore.MaxLCoreID+1 {
		e = multierr.Append(e, fmt.Errorf("driverconfig.corecount %d out of range [1,%d]", d.CoreCount, lcore.MaxLCoreID+1))
	}
	switch d.Driver {
	case DriverSim, DriverAfPacket:
	case DriverPcap:
		if d.PcapFile == "" {
			e = multierr.Append(e, fmt.Errorf("driverconfig.pcapfile is required by driver %s", d.Driver))
		}
	default:
		e = multierr.Append(e, fmt.Errorf("driverconfig.driver %q unknown", d.Driver))
	}

	ids := map[int]string{}
	for _, t := range cfg.Tenants.list {
		e = multierr.Append(e, t.validate(d.CoreCount, ids))
	}

	if err := cfg.Poll.Validate(); err != nil {
		e = multierr.Append(e, fmt.Errorf("pollconfig: %w", err))
	}
	return e
}

func (t TenantConfig) validate(coreCount int, ids map[int]string) (e error) {
	field := func(name string) string { return "tenantconfig." + t.Key + "." + name }
	if t.ID < 0 || t.ID >= coreCount {
		e = multierr.Append(e, fmt.Errorf("%s %d out of range [0,%d)", field("id"), t.ID, coreCount))
	}
	if other, ok := ids[t.ID]; ok {
		e = multierr.Append(e, fmt.Errorf("%s %d duplicates tenant %s", field("id"), t.ID, other))
	}
	ids[t.ID] = t.Key
	if t.Priority < 0 {
		e = multierr.Append(e, fmt.Errorf("%s must be non-negative", field("prio")))
	}
	for _, stage := range t.OffloadChain {
		if stage < 0 {
			e = multierr.Append(e, fmt.Errorf("%s contains negative stage %d", field("offloadchain"), stage))
		}
	}
	if _, err := t.Mask(); err != nil {
		e = multierr.Append(e, fmt.Errorf("%s: %w", field("coremask"), err))
	}
	if _, err := t.EndpointAddr(); err != nil {
		e = multierr.Append(e, fmt.Errorf("%s: %w", field("ip"), err))
	}
	if t.Port < 1 || t.Port > 65535 {
		e = multierr.Append(e, fmt.Errorf("%s %d out of range [1,65535]", field("port"), t.Port))
	}
	return e
}

// NicConfig returns device initialization parameters.
// It should be invoked after Validate.
func (cfg Config) NicConfig() nic.Config {
	return nic.Config{
		Driver:    cfg.Driver.Driver,
		PCIAddr:   pciaddr.MustParse(cfg.Driver.PCIAddr),
		Netif:     cfg.Driver.Netif,
		PcapFile:  cfg.Driver.PcapFile,
		NumQueues: cfg.Driver.CoreCount,
		FrameLen:  cfg.Driver.FrameLen,
	}
}

// CoreMasks returns per-queue lcore preferences derived from tenant core masks.
// It should be invoked after Validate.
func (cfg Config) CoreMasks() map[int]lcore.Mask {
	masks := map[int]lcore.Mask{}
	for _, t := range cfg.Tenants.list {
		if m, e := t.Mask(); e == nil && !m.Empty() {
			masks[t.ID] = m
		}
	}
	return masks
}

// Endpoints returns parsed tenant endpoints keyed by tenant ID.
func (cfg Config) Endpoints() map[int]netip.AddrPort {
	m := map[int]netip.AddrPort{}
	for _, t := range cfg.Tenants.list {
		if addr, e := t.EndpointAddr(); e == nil {
			m[t.ID] = netip.AddrPortFrom(addr, uint16(t.Port))
		}
	}
	return m
}
