//go:build linux

package afpnic

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"

	"github.com/panicnic/panicrx/core/pciaddr"
	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"github.com/zyedidia/generic"
	"go.uber.org/zap"
)

// ErrNoNetif indicates the PCI device has no kernel network interface.
var ErrNoNetif = errors.New("no network interface")

// NetIntf controls a network interface via netlink and ethtool.
type NetIntf struct {
	*netlink.LinkAttrs
	Link   netlink.Link
	logger *zap.Logger
}

func (n *NetIntf) save(link netlink.Link) {
	n.Link = link
	n.LinkAttrs = link.Attrs()
	n.logger = logger.With(
		zap.Int("ifindex", n.Index),
		zap.String("ifname", n.Name),
	)
}

// Refresh refreshes netlink information stored in this struct.
func (n *NetIntf) Refresh() {
	link, e := netlink.LinkByIndex(n.Index)
	if e != nil {
		n.logger.Warn("refresh error", zap.Error(e))
		return
	}
	n.save(link)
}

// EnsureLinkUp brings up the link.
func (n *NetIntf) EnsureLinkUp() error {
	if n.Flags&net.FlagUp != 0 {
		return nil
	}
	if e := netlink.LinkSetUp(n.Link); e != nil {
		n.logger.Error("netlink.LinkSetUp error", zap.Error(e))
		return fmt.Errorf("netlink.LinkSetUp(%s): %w", n.Name, e)
	}
	n.logger.Info("brought up the interface")
	n.Refresh()
	return nil
}

// CheckChannels compares the number of hardware RX channels with the requested queue count.
// Mismatch is logged but not fatal, because the fanout group distributes in software.
func (n *NetIntf) CheckChannels(nQueues int) {
	etht, e := ethtool.NewEthtool()
	if e != nil {
		n.logger.Warn("ethtool.NewEthtool error", zap.Error(e))
		return
	}
	defer etht.Close()

	if drv, e := etht.DriverName(n.Name); e == nil {
		n.logger = n.logger.With(zap.String("kernel-driver", drv))
	}

	channels, e := etht.GetChannels(n.Name)
	if e != nil {
		n.logger.Debug("ethtool.GetChannels error", zap.Error(e))
		return
	}
	rx := generic.Max(channels.RxCount, channels.CombinedCount)
	logEntry := n.logger.With(
		zap.Uint32("rx", channels.RxCount),
		zap.Uint32("combined", channels.CombinedCount),
		zap.Int("queues", nQueues),
	)
	if int(rx) < nQueues {
		logEntry.Warn("fewer hardware RX channels than queues")
		return
	}
	logEntry.Debug("hardware RX channels")
}

// NetIntfByName creates NetIntf by network interface name.
func NetIntfByName(ifname string) (n *NetIntf, e error) {
	link, e := netlink.LinkByName(ifname)
	if e != nil {
		return nil, fmt.Errorf("netlink.LinkByName(%s): %w", ifname, e)
	}

	n = &NetIntf{}
	n.save(link)
	return n, nil
}

// NetifFromPCI determines the kernel network interface name of a PCI device.
// If the device has several interfaces, the first in lexical order is returned.
func NetifFromPCI(addr pciaddr.PCIAddress) (ifname string, e error) {
	dir := filepath.Join(addr.SysfsPath(), "net")
	entries, e := os.ReadDir(dir)
	if e != nil {
		return "", fmt.Errorf("%s: %w", addr, errors.Join(ErrNoNetif, e))
	}
	names := []string{}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%s: %w", addr, ErrNoNetif)
	}
	sort.Strings(names)
	return names[0], nil
}
