package rxreport

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type promQueue struct {
	tenant  string
	packets uint64
	bytes   uint64
	errors  uint64
	gbps    float64
	pps     float64
}

// PrometheusSink accumulates reports and exposes them as Prometheus metrics.
// It implements both Sink and prometheus.Collector.
type PrometheusSink struct {
	mu     sync.Mutex
	queues map[int]*promQueue

	packetsTotal *prometheus.Desc
	bytesTotal   *prometheus.Desc
	errorsTotal  *prometheus.Desc
	gbps         *prometheus.Desc
	pps          *prometheus.Desc
}

var (
	_ Sink                 = (*PrometheusSink)(nil)
	_ prometheus.Collector = (*PrometheusSink)(nil)
)

// NewPrometheusSink creates a PrometheusSink.
func NewPrometheusSink() *PrometheusSink {
	labels := []string{"queue", "tenant"}
	return &PrometheusSink{
		queues: map[int]*promQueue{},
		packetsTotal: prometheus.NewDesc(
			"panicrx_rx_packets_total",
			"Total packets received per queue.",
			labels, nil,
		),
		bytesTotal: prometheus.NewDesc(
			"panicrx_rx_bytes_total",
			"Total bytes received per queue.",
			labels, nil,
		),
		errorsTotal: prometheus.NewDesc(
			"panicrx_rx_errors_total",
			"Total receive errors per queue.",
			labels, nil,
		),
		gbps: prometheus.NewDesc(
			"panicrx_rx_throughput_gbps",
			"Throughput over the last report interval.",
			labels, nil,
		),
		pps: prometheus.NewDesc(
			"panicrx_rx_packet_rate_pps",
			"Packet rate over the last report interval.",
			labels, nil,
		),
	}
}

// Emit implements Sink interface.
func (s *PrometheusSink) Emit(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range r.Lines {
		q := s.queues[l.Queue]
		if q == nil {
			q = &promQueue{}
			if l.Tenant >= 0 {
				q.tenant = strconv.Itoa(l.Tenant)
			}
			s.queues[l.Queue] = q
		}
		q.packets += l.Packets
		q.bytes += l.Bytes
		q.errors += l.Errors
		q.gbps, q.pps = l.Gbps, l.PacketsPerSecond
	}
	return nil
}

// Describe implements prometheus.Collector interface.
func (s *PrometheusSink) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.packetsTotal
	ch <- s.bytesTotal
	ch <- s.errorsTotal
	ch <- s.gbps
	ch <- s.pps
}

// Collect implements prometheus.Collector interface.
func (s *PrometheusSink) Collect(ch chan<- prometheus.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for queue, q := range s.queues {
		labels := []string{strconv.Itoa(queue), q.tenant}
		ch <- prometheus.MustNewConstMetric(s.packetsTotal, prometheus.CounterValue, float64(q.packets), labels...)
		ch <- prometheus.MustNewConstMetric(s.bytesTotal, prometheus.CounterValue, float64(q.bytes), labels...)
		ch <- prometheus.MustNewConstMetric(s.errorsTotal, prometheus.CounterValue, float64(q.errors), labels...)
		ch <- prometheus.MustNewConstMetric(s.gbps, prometheus.GaugeValue, q.gbps, labels...)
		ch <- prometheus.MustNewConstMetric(s.pps, prometheus.GaugeValue, q.pps, labels...)
	}
}
