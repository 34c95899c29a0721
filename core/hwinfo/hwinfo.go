// Package hwinfo gathers hardware information.
package hwinfo

import (
	"sort"

	"github.com/panicnic/panicrx/core/logging"
	"github.com/zyedidia/generic"
)

var logger = logging.New("hwinfo")

// CoreInfo describes a logical CPU core.
type CoreInfo struct {
	ID          int // logical core ID
	NumaSocket  int // NUMA socket
	PhysicalKey int // physical core identifier, unique across sockets
}

// Cores contains information about CPU cores.
type Cores []CoreInfo

// IDs returns sorted logical core IDs.
func (cores Cores) IDs() (list []int) {
	for _, core := range cores {
		list = append(list, core.ID)
	}
	sort.Ints(list)
	return list
}

// Has determines whether a logical core is present.
func (cores Cores) Has(id int) bool {
	for _, core := range cores {
		if core.ID == id {
			return true
		}
	}
	return false
}

// ByPhysicalKey classifies cores by physical core.
// A group with more than one entry contains hyperthread siblings.
func (cores Cores) ByPhysicalKey() (m map[int]Cores) {
	m = map[int]Cores{}
	for _, core := range cores {
		m[core.PhysicalKey] = append(m[core.PhysicalKey], core)
	}
	return m
}

// MaxNumaSocket determines the maximum NUMA socket.
func (cores Cores) MaxNumaSocket() int {
	maxSocket := -1
	for _, core := range cores {
		maxSocket = generic.Max(maxSocket, core.NumaSocket)
	}
	return maxSocket
}

// Provider provides information about hardware.
type Provider interface {
	// Cores provides information about CPU cores available to this process.
	// An empty list means the information is unavailable.
	Cores() Cores
}

// Static is a Provider that returns a fixed list.
type Static Cores

// Cores implements Provider interface.
func (s Static) Cores() Cores {
	return Cores(s)
}

// Default is the default Provider implementation.
var Default Provider = &procinfoProvider{}
