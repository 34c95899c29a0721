// Package logging is a thin wrapper of zap logging library.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvFormat selects the log encoder: "json" (default) or "console".
// Logs are written to stderr so that they do not interleave with throughput lines on stdout.
const EnvFormat = "PANICRX_LOG_FORMAT"

// NewEncoder creates the encoder selected by format.
func NewEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

var root = zap.New(zapcore.NewCore(NewEncoder(os.Getenv(EnvFormat)), os.Stderr, zap.DebugLevel))

// Named creates a named logger that ignores the configured level.
func Named(pkg string) *zap.Logger {
	return root.Named(pkg)
}

// New creates a package logger filtered by the level from PANICRX_LOG_<pkg> or PANICRX_LOG.
//
//	var logger = logging.New("Foo")
func New(pkg string) *zap.Logger {
	return Named(pkg).WithOptions(zap.IncreaseLevel(GetLevel(pkg).al))
}
