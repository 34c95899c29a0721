package hwinfo

import (
	"fmt"
	"math/big"
	"sync"

	procinfo "github.com/c9s/goprocinfo/linux"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	pathCPUInfo       = "/proc/cpuinfo"
	pathProcessStatus = "/proc/self/status"
	pathSystemNode    = "/sys/devices/system/node"
	maxPhysicalCore   = 4096
	maxNumaNode       = 32
)

// procinfoProvider reads the Cpus_allowed mask of this process and the processor list once.
type procinfoProvider struct {
	once  sync.Once
	cores Cores
}

func (p *procinfoProvider) Cores() Cores {
	p.once.Do(func() {
		allowed, e := readAllowed()
		if e != nil {
			logger.Warn("allowed CPU set unknown, lcore allocation is unrestricted", zap.Error(e))
			return
		}
		p.cores, e = readCores(allowed)
		if e != nil {
			logger.Warn("CPU topology unknown, lcore allocation is unrestricted", zap.Error(e))
			return
		}
		logger.Debug("CPU cores discovered", zap.Int("allowed", len(p.cores)))
	})
	return p.cores
}

func readAllowed() (*big.Int, error) {
	status, e := procinfo.ReadProcessStatus(pathProcessStatus)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", pathProcessStatus, e)
	}
	allowed := &big.Int{}
	for _, word := range status.CpusAllowed {
		allowed.Lsh(allowed, 32)
		allowed.Add(allowed, big.NewInt(int64(word)))
	}
	return allowed, nil
}

func readCores(allowed *big.Int) (cores Cores, e error) {
	cpuInfo, e := procinfo.ReadCPUInfo(pathCPUInfo)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", pathCPUInfo, e)
	}

	for _, processor := range cpuInfo.Processors {
		if allowed.Bit(int(processor.Id)) == 0 || processor.CoreId >= maxPhysicalCore {
			continue
		}
		cores = append(cores, CoreInfo{
			ID:          int(processor.Id),
			NumaSocket:  numaSocketOf(processor.Id),
			PhysicalKey: maxPhysicalCore*int(processor.PhysicalId) + int(processor.CoreId),
		})
	}
	return cores, nil
}

// numaSocketOf returns the NUMA node that lists the CPU, or 0 on a non-NUMA kernel.
func numaSocketOf(cpu int64) int {
	for i := 0; i < maxNumaNode; i++ {
		path := fmt.Sprintf("%s/node%d/cpu%d", pathSystemNode, i, cpu)
		if unix.Access(path, unix.F_OK) == nil {
			return i
		}
	}
	return 0
}
