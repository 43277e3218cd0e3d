package core

import (
	"context"
	"sync"
)

// captureMetrics records counter increments for assertions.
type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (m *captureMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	m.counters[name] += value
}

func (m *captureMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *captureMetrics) counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

var _ MetricsRecorder = (*captureMetrics)(nil)
