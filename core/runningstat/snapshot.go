package runningstat

import (
	"encoding/json"
	"math"

	"go.uber.org/zap"
)

// Snapshot contains a reading of RunningStat.
// Fields other than Count are NaN when undefined.
type Snapshot struct {
	Count uint64  `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
}

// Scale multiplies every number by a ratio.
func (s Snapshot) Scale(ratio float64) (o Snapshot) {
	o = s
	o.Min *= ratio
	o.Max *= ratio
	o.Mean *= ratio
	o.Stdev *= math.Abs(ratio)
	return o
}

// ZapFields returns zap fields for logging, prefixing each key.
func (s Snapshot) ZapFields(prefix string) []zap.Field {
	return []zap.Field{
		zap.Uint64(prefix+"count", s.Count),
		zap.Float64(prefix+"min", s.Min),
		zap.Float64(prefix+"max", s.Max),
		zap.Float64(prefix+"mean", s.Mean),
		zap.Float64(prefix+"stdev", s.Stdev),
	}
}

// MarshalJSON implements json.Marshaler interface.
// NaN fields are omitted.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	m := map[string]any{"count": s.Count}
	addUnlessNaN := func(key string, value float64) {
		if !math.IsNaN(value) {
			m[key] = value
		}
	}
	addUnlessNaN("min", s.Min)
	addUnlessNaN("max", s.Max)
	addUnlessNaN("mean", s.Mean)
	addUnlessNaN("stdev", s.Stdev)
	return json.Marshal(m)
}
