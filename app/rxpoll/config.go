package rxpoll

import (
	"errors"
	"fmt"
)

// Defaults and limits.
const (
	// DefaultBatchSize is the default maximum number of packets per RxBatch.
	DefaultBatchSize = 64

	// MaxBatchSize is the maximum BatchSize.
	MaxBatchSize = 4096

	// DefaultFlushBytes is the default local byte count that triggers a flush.
	DefaultFlushBytes = 1000000

	// publishPolls is the number of polls between LoadStat publications when no flush occurs.
	publishPolls = 1 << 16
)

// Error conditions.
var (
	ErrBatchSize  = fmt.Errorf("batchsize must be between 1 and %d", MaxBatchSize)
	ErrFlushBytes = errors.New("flushbytes must be non-negative")
)

// Config contains poller settings.
type Config struct {
	// BatchSize is the maximum number of packets requested per poll.
	BatchSize int `json:"batchsize,omitempty"`

	// FlushBytes is the threshold of locally accumulated bytes.
	// When the local byte counter exceeds this value, local counters are added to the shared slot.
	FlushBytes int `json:"flushbytes,omitempty"`
}

// ApplyDefaults fills zero fields with defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushBytes == 0 {
		cfg.FlushBytes = DefaultFlushBytes
	}
}

// Validate checks the settings after ApplyDefaults.
func (cfg Config) Validate() error {
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		return ErrBatchSize
	}
	if cfg.FlushBytes < 0 {
		return ErrFlushBytes
	}
	return nil
}
