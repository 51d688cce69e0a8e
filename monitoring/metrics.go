package monitoring

import (
	"sync"
	"time"
)

// Metrics tracks engine-level counters for the status endpoint and the
// realtime monitor. All methods are safe for concurrent use.
type Metrics struct {
	mu            sync.RWMutex
	requests      int64
	modelResults  int64
	rulesResults  int64
	cacheHits     int64
	failures      int64
	totalLatency  time.Duration
	startTime     time.Time
	lastRequestAt time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest counts one served recommendation and which path
// produced it.
func (m *Metrics) RecordRequest(source string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	m.totalLatency += latency
	m.lastRequestAt = time.Now()
	switch source {
	case "model":
		m.modelResults++
	case "rules":
		m.rulesResults++
	}
}

func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests      int64         `json:"requests"`
	ModelResults  int64         `json:"modelResults"`
	RulesResults  int64         `json:"rulesResults"`
	CacheHits     int64         `json:"cacheHits"`
	Failures      int64         `json:"failures"`
	AvgLatencyMS  float64       `json:"avgLatencyMs"`
	Uptime        time.Duration `json:"uptime"`
	LastRequestAt time.Time     `json:"lastRequestAt"`
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Requests:      m.requests,
		ModelResults:  m.modelResults,
		RulesResults:  m.rulesResults,
		CacheHits:     m.cacheHits,
		Failures:      m.failures,
		Uptime:        time.Since(m.startTime),
		LastRequestAt: m.lastRequestAt,
	}
	if m.requests > 0 {
		snap.AvgLatencyMS = float64(m.totalLatency.Milliseconds()) / float64(m.requests)
	}
	return snap
}
