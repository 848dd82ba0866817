package logger

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trackstats"

var invalidMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// Metrics tracks operational metrics including counters, gauges, and timings
// on its own Prometheus registry. All operations are thread-safe.
//
// Counters track incrementing values (e.g., results created).
// Gauges track point-in-time values (e.g., meets in the last run).
// Timings track durations as histograms in seconds.
type Metrics struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	timings  map[string]prometheus.Histogram
}

var defaultMetrics = NewMetrics()

// NewMetrics creates a new metrics tracker with an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
		timings:  make(map[string]prometheus.Histogram),
	}
}

// metricName turns "results.created" into "trackstats_results_created".
func metricName(name string) string {
	return namespace + "_" + invalidMetricChars.ReplaceAllString(name, "_")
}

// IncrCounter increments a counter by 1.
func (m *Metrics) IncrCounter(name string) {
	m.AddCounter(name, 1)
}

// AddCounter increments a counter by n.
func (m *Metrics) AddCounter(name string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{Name: metricName(name) + "_total", Help: name})
		m.registry.MustRegister(c)
		m.counters[name] = c
	}
	c.Add(float64(n))
}

// SetGauge sets a gauge to the specified value, overwriting any previous value.
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{Name: metricName(name), Help: name})
		m.registry.MustRegister(g)
		m.gauges[name] = g
	}
	g.Set(value)
}

// RecordTiming records a duration measurement.
func (m *Metrics) RecordTiming(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.timings[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricName(name) + "_seconds",
			Help:    name,
			Buckets: prometheus.DefBuckets,
		})
		m.registry.MustRegister(h)
		m.timings[name] = h
	}
	h.Observe(duration.Seconds())
}

// GetSnapshot returns the current values keyed by metric name:
//   - "counters": counter values
//   - "gauges": gauge values
//   - "timings": observation count and total seconds per histogram
func (m *Metrics) GetSnapshot() (map[string]interface{}, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}

	counters := make(map[string]float64)
	gauges := make(map[string]float64)
	timings := make(map[string]map[string]interface{})
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				counters[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				gauges[mf.GetName()] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				timings[mf.GetName()] = map[string]interface{}{
					"count": metric.GetHistogram().GetSampleCount(),
					"total": metric.GetHistogram().GetSampleSum(),
				}
			}
		}
	}

	return map[string]interface{}{
		"counters": counters,
		"gauges":   gauges,
		"timings":  timings,
	}, nil
}

// WriteTextfile writes every metric in the Prometheus text format to path,
// atomically replacing the file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Package-level metrics functions using the default metrics tracker

// IncrCounter increments a counter on the default metrics tracker.
func IncrCounter(name string) {
	defaultMetrics.IncrCounter(name)
}

// AddCounter adds n to a counter on the default metrics tracker.
func AddCounter(name string, n int) {
	defaultMetrics.AddCounter(name, n)
}

// SetGauge sets a gauge on the default metrics tracker.
func SetGauge(name string, value float64) {
	defaultMetrics.SetGauge(name, value)
}

// RecordTiming records a timing on the default metrics tracker.
func RecordTiming(name string, duration time.Duration) {
	defaultMetrics.RecordTiming(name, duration)
}

// GetMetrics returns a snapshot of the default metrics tracker.
func GetMetrics() (map[string]interface{}, error) {
	return defaultMetrics.GetSnapshot()
}

// WriteTextfile writes the default metrics tracker to path.
func WriteTextfile(path string) error {
	return defaultMetrics.WriteTextfile(path)
}
