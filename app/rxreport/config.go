package rxreport

import (
	"github.com/panicnic/panicrx/core/nnduration"
)

// Defaults.
const (
	DefaultInterval   nnduration.Milliseconds = 3000
	DefaultMinElapsed nnduration.Milliseconds = 2000
)

// Config contains reporter settings.
type Config struct {
	// Interval is the sleep duration between reporter wakeups.
	Interval nnduration.Milliseconds `json:"interval,omitempty"`

	// MinElapsed is the minimum time since previous report.
	// A wakeup sooner than this is skipped.
	// If omitted, DefaultMinElapsed applies; zero disables the check.
	MinElapsed *nnduration.Milliseconds `json:"minelapsed,omitempty"`
}

// ApplyDefaults fills zero fields with defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MinElapsed == nil {
		d := DefaultMinElapsed
		cfg.MinElapsed = &d
	}
}
