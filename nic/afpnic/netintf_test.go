//go:build linux

package afpnic_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panicnic/panicrx/core/pciaddr"
	"github.com/panicnic/panicrx/nic"
	"github.com/panicnic/panicrx/nic/afpnic"
)

func TestNetifFromPCI(t *testing.T) {
	assert, require := makeAR(t)

	oldRoot := pciaddr.SysfsRoot
	pciaddr.SysfsRoot = t.TempDir()
	defer func() { pciaddr.SysfsRoot = oldRoot }()

	withNetif := pciaddr.MustParse("0000:04:00.0")
	require.NoError(os.MkdirAll(filepath.Join(withNetif.SysfsPath(), "net", "enp4s0f1"), 0o755))
	require.NoError(os.MkdirAll(filepath.Join(withNetif.SysfsPath(), "net", "enp4s0f0"), 0o755))
	noNetif := pciaddr.MustParse("0000:05:00.0")
	require.NoError(os.MkdirAll(filepath.Join(noNetif.SysfsPath(), "net"), 0o755))

	ifname, e := afpnic.NetifFromPCI(withNetif)
	assert.NoError(e)
	assert.Equal("enp4s0f0", ifname)

	_, e = afpnic.NetifFromPCI(noNetif)
	assert.ErrorIs(e, afpnic.ErrNoNetif)

	_, e = afpnic.NetifFromPCI(pciaddr.MustParse("0000:06:00.0"))
	assert.ErrorIs(e, afpnic.ErrNoNetif)
}

func TestOpenLoopback(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("AF_PACKET requires root")
	}
	assert, require := makeAR(t)

	dev, e := nic.Open(nic.Config{Driver: afpnic.DriverName, Netif: "lo", NumQueues: 2})
	require.NoError(e)
	assert.Equal(2, dev.NumQueues())

	bufs := make([]*nic.Buffer, 8)
	n, e := dev.RxBatch(0, bufs)
	assert.NoError(e)
	for _, buf := range bufs[:n] {
		dev.Free(buf)
	}
	assert.NoError(dev.ConfigureOffload(nic.OffloadRule{Tenant: 0, Chain: 1}))

	// an empty ring does not block the caller
	t0 := time.Now()
	for i := 0; i < 200; i++ {
		n, e := dev.RxBatch(1, bufs)
		require.NoError(e)
		for _, buf := range bufs[:n] {
			dev.Free(buf)
		}
	}
	assert.Less(time.Since(t0), 100*time.Millisecond)

	assert.NoError(dev.Close())
	_, e = dev.RxBatch(0, bufs)
	assert.ErrorIs(e, nic.ErrClosed)
}
