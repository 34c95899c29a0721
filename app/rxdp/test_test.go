package rxdp_test

import (
	"sync"
	"testing"

	"github.com/panicnic/panicrx/app/rxconfig"
	"github.com/panicnic/panicrx/app/rxreport"
	"github.com/panicnic/panicrx/core/hwinfo"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/core/testenv"
)

var makeAR = testenv.MakeAR

const testConfig = `{
  "driverconfig": { "pcieaddr": "0000:03:00.0", "corecount": 3 },
  "tenantconfig": {
    "A": { "id": 2, "prio": 1, "offloadchain": [3, 5, 7], "coremask": "0x30", "ip": "10.0.0.1", "port": 9000 },
    "B": { "id": 0, "prio": 2, "offloadchain": [], "coremask": "", "ip": "10.0.0.2", "port": 9001 }
  },
  "reportconfig": { "interval": 20, "minelapsed": 10 }
}`

func parseConfig(t testing.TB) *rxconfig.Config {
	cfg, e := rxconfig.Parse([]byte(testConfig))
	if e != nil {
		t.Fatal(e)
	}
	return cfg
}

func makeAllocator() *lcore.Allocator {
	cores := hwinfo.Static{}
	for id := 0; id < 8; id++ {
		cores = append(cores, hwinfo.CoreInfo{ID: id})
	}
	return lcore.NewAllocator(cores)
}

type recorder struct {
	mu      sync.Mutex
	reports []rxreport.Report
}

func (r *recorder) Emit(rpt rxreport.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rpt)
	return nil
}

func (r *recorder) Reports() []rxreport.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rxreport.Report{}, r.reports...)
}

// BytesByQueue sums reported bytes per queue.
func (r *recorder) BytesByQueue() map[int]uint64 {
	m := map[int]uint64{}
	for _, rpt := range r.Reports() {
		for _, l := range rpt.Lines {
			m[l.Queue] += l.Bytes
		}
	}
	return m
}
