package pollthread

import "sync/atomic"

// LoadStat contains statistics of a polling thread.
type LoadStat struct {
	// EmptyPolls is the number of polls that returned zero items.
	EmptyPolls uint64 `json:"emptyPolls"`
	// ValidPolls is the number of polls that returned at least one item.
	ValidPolls uint64 `json:"validPolls"`
	// Items is the number of items returned by valid polls.
	Items uint64 `json:"items"`
	// Errors is the number of polls that returned an error.
	Errors uint64 `json:"errors"`
}

// Add computes the sum.
func (s LoadStat) Add(o LoadStat) (sum LoadStat) {
	sum.EmptyPolls = s.EmptyPolls + o.EmptyPolls
	sum.ValidPolls = s.ValidPolls + o.ValidPolls
	sum.Items = s.Items + o.Items
	sum.Errors = s.Errors + o.Errors
	return sum
}

// Sub computes the difference.
func (s LoadStat) Sub(prev LoadStat) (diff LoadStat) {
	diff.EmptyPolls = s.EmptyPolls - prev.EmptyPolls
	diff.ValidPolls = s.ValidPolls - prev.ValidPolls
	diff.Items = s.Items - prev.Items
	diff.Errors = s.Errors - prev.Errors
	return diff
}

// ItemsPerPoll returns average batch size of valid polls.
func (s LoadStat) ItemsPerPoll() float64 {
	if s.ValidPolls == 0 {
		return 0
	}
	return float64(s.Items) / float64(s.ValidPolls)
}

// LoadStatCounters publishes LoadStat from a polling thread to readers.
// The polling thread accumulates locally and calls Publish occasionally.
type LoadStatCounters struct {
	emptyPolls, validPolls, items, errors atomic.Uint64
}

// Publish adds a local delta.
func (c *LoadStatCounters) Publish(delta LoadStat) {
	c.emptyPolls.Add(delta.EmptyPolls)
	c.validPolls.Add(delta.ValidPolls)
	c.items.Add(delta.Items)
	c.errors.Add(delta.Errors)
}

// Read returns published counters.
func (c *LoadStatCounters) Read() (s LoadStat) {
	s.EmptyPolls = c.emptyPolls.Load()
	s.ValidPolls = c.validPolls.Load()
	s.Items = c.items.Load()
	s.Errors = c.errors.Load()
	return s
}

// ThreadWithLoadStat is an object that tracks thread load statistics.
type ThreadWithLoadStat interface {
	Thread
	ThreadLoadStat() LoadStat
}
