package rxconfig_test

import (
	"encoding/json"
	"io/fs"
	"net/netip"
	"testing"
	"time"

	"github.com/panicnic/panicrx/app/rxconfig"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/pciaddr"
	"github.com/panicnic/panicrx/core/testenv"
	"go.uber.org/multierr"
)

const validConfig = `{
  "driverconfig": { "pcieaddr": "0000:03:00.0", "corecount": 4, "settle": "4s" },
  "panicconfig": { "sche_policy": "priority", "engine_num": 8 },
  "tenantconfig": {
    "zeta": { "id": 2, "prio": 1, "offloadchain": [3, 5, 7], "coremask": "0x30", "ip": "10.0.0.2", "port": 9000 },
    "alpha": { "id": 0, "prio": 2, "offloadchain": [], "coremask": "", "ip": "fd00::1", "port": 9001 }
  }
}`

func TestLoad(t *testing.T) {
	assert, require := makeAR(t)

	cfg, e := rxconfig.Load(testenv.WriteFile(t, "rx.json", validConfig))
	require.NoError(e)

	assert.Equal("0000:03:00.0", cfg.Driver.PCIAddr)
	assert.Equal(4, cfg.Driver.CoreCount)
	assert.Equal(rxconfig.DriverSim, cfg.Driver.Driver)
	assert.Equal(4*time.Second, cfg.Driver.Settle.Duration())
	assert.Equal("priority", cfg.Panic.SchedPolicy)
	assert.Equal(8, cfg.Panic.EngineNum)

	assert.Equal(64, cfg.Poll.BatchSize)
	assert.Equal(1000000, cfg.Poll.FlushBytes)
	assert.Equal(3*time.Second, cfg.Report.Interval.Duration())
	assert.Equal(2*time.Second, cfg.Report.MinElapsed.Duration())

	require.Equal(2, cfg.Tenants.Len())
	zeta, alpha := cfg.Tenants.At(0), cfg.Tenants.At(1)
	assert.Equal("zeta", zeta.Key)
	assert.Equal(2, zeta.ID)
	assert.Equal(1, zeta.Priority)
	assert.Equal([]int{3, 5, 7}, zeta.OffloadChain)
	assert.Equal(9000, zeta.Port)
	assert.Equal("alpha", alpha.Key)
	assert.Empty(alpha.OffloadChain)

	byQueue, ok := cfg.Tenants.ByQueue(2)
	assert.True(ok)
	assert.Equal("zeta", byQueue.Key)
	_, ok = cfg.Tenants.ByQueue(1)
	assert.False(ok)

	nc := cfg.NicConfig()
	assert.Equal(pciaddr.MustParse("0000:03:00.0"), nc.PCIAddr)
	assert.Equal(4, nc.NumQueues)

	masks := cfg.CoreMasks()
	assert.Len(masks, 1)
	assert.Equal([]lcore.LCore{lcore.FromID(4), lcore.FromID(5)}, masks[2].List())

	endpoints := cfg.Endpoints()
	assert.Equal(netip.MustParseAddrPort("[fd00::1]:9001"), endpoints[0])
}

func TestTenantListImmutable(t *testing.T) {
	assert, require := makeAR(t)

	cfg, e := rxconfig.Parse([]byte(validConfig))
	require.NoError(e)

	t0 := cfg.Tenants.At(0)
	t0.OffloadChain[0] = 99
	all := cfg.Tenants.All()
	all[0].Port = 1
	assert.Equal([]int{3, 5, 7}, cfg.Tenants.At(0).OffloadChain)
	assert.Equal(9000, cfg.Tenants.At(0).Port)

	j, e := json.Marshal(cfg.Tenants)
	require.NoError(e)
	var tl rxconfig.TenantList
	require.NoError(json.Unmarshal(j, &tl))
	assert.Equal(cfg.Tenants.All(), tl.All())
}

func TestLoadErrors(t *testing.T) {
	assert, _ := makeAR(t)

	var ce *rxconfig.ConfigError

	missing := testenv.TempName(t, "missing.json")
	_, e := rxconfig.Load(missing)
	if assert.ErrorAs(e, &ce) {
		assert.Equal(missing, ce.Path)
		assert.ErrorIs(e, fs.ErrNotExist)
	}

	_, e = rxconfig.Load(testenv.WriteFile(t, "malformed.json", `{"driverconfig": `))
	assert.ErrorAs(e, &ce)

	_, e = rxconfig.Load(testenv.WriteFile(t, "notenant.json",
		`{"driverconfig": {"pcieaddr": "0000:03:00.0", "corecount": 2}}`))
	if assert.ErrorAs(e, &ce) {
		assert.ErrorIs(e, rxconfig.ErrSchema)
	}

	_, e = rxconfig.Parse([]byte(`{
		"driverconfig": {"pcieaddr": "0000:03:00.0", "corecount": 2},
		"tenantconfig": {"a": {"id": 0, "prio": 0, "coremask": "", "ip": "10.0.0.1"}}
	}`))
	assert.ErrorIs(e, rxconfig.ErrSchema)
}

func TestValidate(t *testing.T) {
	assert, _ := makeAR(t)

	_, e := rxconfig.Parse([]byte(`{
		"driverconfig": {"pcieaddr": "03:00", "corecount": 2, "driver": "pcap"},
		"tenantconfig": {
			"a": {"id": 2, "prio": 0, "coremask": "zz", "ip": "10.0.0.1", "port": 1},
			"b": {"id": 1, "prio": 0, "coremask": "1", "ip": "example.com", "port": 2},
			"c": {"id": 1, "prio": 0, "coremask": "1", "ip": "10.0.0.3", "port": 3}
		}
	}`))
	var ce *rxconfig.ConfigError
	if assert.ErrorAs(e, &ce) {
		// pcieaddr, pcapfile, a.id, a.coremask, b.ip, c.id duplicate
		assert.Len(multierr.Errors(ce.Err), 6)
	}

	_, e = rxconfig.Parse([]byte(`{
		"driverconfig": {"pcieaddr": "0000:03:00.0", "corecount": 1},
		"tenantconfig": {},
		"pollconfig": {"batchsize": 100000}
	}`))
	assert.ErrorAs(e, &ce)

	cfg, e := rxconfig.Parse([]byte(`{
		"driverconfig": {"pcieaddr": "0000:03:00.0", "corecount": 1},
		"tenantconfig": {},
		"reportconfig": {"interval": 500, "minelapsed": "250ms"}
	}`))
	if assert.NoError(e) {
		assert.Equal(0, cfg.Tenants.Len())
		assert.Equal(500*time.Millisecond, cfg.Report.Interval.Duration())
		assert.Equal(250*time.Millisecond, cfg.Report.MinElapsed.Duration())
	}

	cfg, e = rxconfig.Parse([]byte(`{
		"driverconfig": {"pcieaddr": "0000:03:00.0", "corecount": 1},
		"tenantconfig": {},
		"reportconfig": {"minelapsed": 0}
	}`))
	if assert.NoError(e) {
		assert.Equal(3*time.Second, cfg.Report.Interval.Duration())
		assert.Zero(cfg.Report.MinElapsed.Duration())
	}
}

func TestSchema(t *testing.T) {
	assert, _ := makeAR(t)
	assert.True(json.Valid(rxconfig.Schema()))
}
