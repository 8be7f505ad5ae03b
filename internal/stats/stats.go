package stats

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	accessDesc = prometheus.NewDesc(
		"udpkv_requests_total",
		"Requests handled by the dispatcher.",
		nil, nil,
	)
	errorsDesc = prometheus.NewDesc(
		"udpkv_request_errors_total",
		"Requests answered with a bad-request status.",
		nil, nil,
	)
	startDesc = prometheus.NewDesc(
		"udpkv_start_time_seconds",
		"Unix time the service started.",
		nil, nil,
	)
)

type Stats struct {
	access  atomic.Int64
	errors  atomic.Int64
	started time.Time
}

func New(started time.Time) *Stats {
	return &Stats{started: started}
}

func (s *Stats) RecordAccess() {
	s.access.Add(1)
}

func (s *Stats) RecordError() {
	s.errors.Add(1)
}

type Snapshot struct {
	Access  int64
	Errors  int64
	Started time.Time
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Access:  s.access.Load(),
		Errors:  s.errors.Load(),
		Started: s.started,
	}
}

func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- accessDesc
	ch <- errorsDesc
	ch <- startDesc
}

func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	snap := s.Snapshot()
	ch <- prometheus.MustNewConstMetric(accessDesc, prometheus.CounterValue, float64(snap.Access))
	ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(snap.Errors))
	ch <- prometheus.MustNewConstMetric(startDesc, prometheus.GaugeValue, float64(snap.Started.Unix()))
}
