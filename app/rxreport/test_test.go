package rxreport_test

import (
	"sync"

	"github.com/panicnic/panicrx/app/rxreport"
	"github.com/panicnic/panicrx/core/testenv"
)

var makeAR = testenv.MakeAR

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
