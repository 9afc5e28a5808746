package runtime

import (
	"sync"
	"time"
)

// MetricsCollector collects per-engine call statistics. It also satisfies
// sdk.MetricsRecorder so engines can report their own counters.
type MetricsCollector struct {
	mu       sync.RWMutex
	metrics  map[string]*EngineMetrics
	counters map[string]int64
}

// CallStats aggregates outcome and latency for a series of calls.
type CallStats struct {
	TotalCalls      int64         `json:"total_calls"`
	SuccessfulCalls int64         `json:"successful_calls"`
	FailedCalls     int64         `json:"failed_calls"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
	MinDuration     time.Duration `json:"min_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	LastCallAt      time.Time     `json:"last_call_at"`
}

func (s *CallStats) record(at time.Time, duration time.Duration, failed bool) {
	s.TotalCalls++
	s.TotalDuration += duration
	s.LastCallAt = at
	if failed {
		s.FailedCalls++
	} else {
		s.SuccessfulCalls++
	}
	if s.TotalCalls == 1 || duration < s.MinDuration {
		s.MinDuration = duration
	}
	if duration > s.MaxDuration {
		s.MaxDuration = duration
	}
	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalCalls)
}

// EngineMetrics contains metrics for a single engine.
type EngineMetrics struct {
	EngineID string `json:"engine_id"`
	CallStats

	LastError           string `json:"last_error,omitempty"`
	CircuitBreakerState string `json:"circuit_breaker_state"`
	CircuitOpenCount    int64  `json:"circuit_open_count"`

	// Operations holds per-operation stats keyed by operation name.
	Operations map[string]CallStats `json:"operations"`
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:  make(map[string]*EngineMetrics),
		counters: make(map[string]int64),
	}
}

// RecordOperation records the outcome of one engine call.
func (m *MetricsCollector) RecordOperation(engineID, operation string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	metrics := m.getOrCreate(engineID)
	metrics.record(now, duration, err != nil)
	if err != nil {
		metrics.LastError = err.Error()
	}

	op := metrics.Operations[operation]
	op.record(now, duration, err != nil)
	metrics.Operations[operation] = op
}

// RecordCircuitBreakerChange records a circuit breaker state change.
func (m *MetricsCollector) RecordCircuitBreakerChange(engineID, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(engineID).CircuitBreakerState = state
}

// RecordCircuitOpen records a call rejected by an open breaker.
func (m *MetricsCollector) RecordCircuitOpen(engineID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(engineID).CircuitOpenCount++
}

// Counter implements sdk.MetricsRecorder.
func (m *MetricsCollector) Counter(name string, value int64, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

// Timing implements sdk.MetricsRecorder. Engine call latency is already
// captured by RecordOperation, so custom timings only bump a counter.
func (m *MetricsCollector) Timing(name string, _ time.Duration, _ ...string) {
	m.Counter(name+".count", 1)
}

// CounterValue returns the current value of a custom counter.
func (m *MetricsCollector) CounterValue(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

// Get returns a copy of the metrics for an engine, or nil.
func (m *MetricsCollector) Get(engineID string) *EngineMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics, exists := m.metrics[engineID]
	if !exists {
		return nil
	}
	c := copyMetrics(metrics)
	return &c
}

// GetAll returns a copy of the metrics for all engines.
func (m *MetricsCollector) GetAll() map[string]EngineMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EngineMetrics, len(m.metrics))
	for id, metrics := range m.metrics {
		result[id] = copyMetrics(metrics)
	}
	return result
}

// Reset clears all metrics.
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[string]*EngineMetrics)
	m.counters = make(map[string]int64)
}

func (m *MetricsCollector) getOrCreate(engineID string) *EngineMetrics {
	if metrics, exists := m.metrics[engineID]; exists {
		return metrics
	}
	metrics := &EngineMetrics{
		EngineID:   engineID,
		Operations: make(map[string]CallStats),
	}
	m.metrics[engineID] = metrics
	return metrics
}

func copyMetrics(metrics *EngineMetrics) EngineMetrics {
	c := *metrics
	c.Operations = make(map[string]CallStats, len(metrics.Operations))
	for op, stats := range metrics.Operations {
		c.Operations[op] = stats
	}
	return c
}
