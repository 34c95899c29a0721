package rxreport

import (
	"bufio"
	"fmt"
	"io"
)

// ConsoleSeparator is printed after each report.
const ConsoleSeparator = "------------------------"

// ConsoleSink prints human-readable throughput lines.
type ConsoleSink struct {
	W io.Writer
}

var _ Sink = ConsoleSink{}

// Emit implements Sink interface.
func (s ConsoleSink) Emit(r Report) error {
	w := bufio.NewWriter(s.W)
	for _, l := range r.Lines {
		if l.Tenant < 0 {
			fmt.Fprintf(w, "Queue %d", l.Queue)
		} else {
			fmt.Fprintf(w, "Tenant %d", l.Tenant)
		}
		fmt.Fprintf(w, ", Throughput: %.2f Gbps, Rate: %.2f Mpps", l.Gbps, l.PacketsPerSecond/1e6)
		if l.Errors > 0 {
			fmt.Fprintf(w, ", Errors: %d", l.Errors)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, ConsoleSeparator)
	return w.Flush()
}

// LogSink writes each line as a structured log entry.
type LogSink struct{}

var _ Sink = LogSink{}

// Emit implements Sink interface.
func (LogSink) Emit(r Report) error {
	for _, l := range r.Lines {
		logger.Info("throughput", l.ZapFields()...)
	}
	return nil
}
