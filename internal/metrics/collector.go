// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpSearch     = "search"
	OpIngest     = "ingest"
	OpAIGenerate = "ai_generate"
	OpDBQuery    = "db_query"
	OpBackup     = "backup"
)

// OperationMetrics holds raw aggregates for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token aggregates, only AI operations fill these
	TotalInputTokens  int64
	TotalOutputTokens int64
	MinInputTokens    int64
	MaxInputTokens    int64
	MinOutputTokens   int64
	MaxOutputTokens   int64
}

// OperationSnapshot is the computed view of one operation, as served by the
// system-health endpoint.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`

	// Token stats, nil for non-AI operations
	TotalInputTokens  *int64   `json:"total_input_tokens,omitempty"`
	TotalOutputTokens *int64   `json:"total_output_tokens,omitempty"`
	AvgInputTokens    *float64 `json:"avg_input_tokens,omitempty"`
	AvgOutputTokens   *float64 `json:"avg_output_tokens,omitempty"`
	MinInputTokens    *int64   `json:"min_input_tokens,omitempty"`
	MaxInputTokens    *int64   `json:"max_input_tokens,omitempty"`
	MinOutputTokens   *int64   `json:"min_output_tokens,omitempty"`
	MaxOutputTokens   *int64   `json:"max_output_tokens,omitempty"`
}

// Snapshot is the full runtime picture at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Search        *OperationSnapshot `json:"search,omitempty"`
	Ingest        *OperationSnapshot `json:"ingest,omitempty"`
	AIGenerate    *OperationSnapshot `json:"ai_generate,omitempty"`
	DBQuery       *OperationSnapshot `json:"db_query,omitempty"`
	Backup        *OperationSnapshot `json:"backup,omitempty"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are safe for concurrent use.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// record applies one timed observation. Caller holds the write lock.
func (c *Collector) record(op string, duration time.Duration) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:         time.Duration(math.MaxInt64),
			MinInputTokens:  math.MaxInt64,
			MinOutputTokens: math.MaxInt64,
		}
		c.ops[op] = m
	}

	m.Count++
	m.TotalTime += duration
	m.MinTime = min(m.MinTime, duration)
	m.MaxTime = max(m.MaxTime, duration)
	return m
}

// RecordTiming records one timed run of an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(op, duration)
}

// RecordAIUsage records one timed AI call together with its token counts.
func (c *Collector) RecordAIUsage(op string, duration time.Duration, inputTokens, outputTokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.record(op, duration)
	m.TotalInputTokens += inputTokens
	m.TotalOutputTokens += outputTokens
	m.MinInputTokens = min(m.MinInputTokens, inputTokens)
	m.MaxInputTokens = max(m.MaxInputTokens, inputTokens)
	m.MinOutputTokens = min(m.MinOutputTokens, outputTokens)
	m.MaxOutputTokens = max(m.MaxOutputTokens, outputTokens)
}

// snapshotOp computes the serving view of one operation, nil when it has
// never been observed.
func snapshotOp(m *OperationMetrics, includeTokens bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeTokens && (m.TotalInputTokens > 0 || m.TotalOutputTokens > 0) {
		totalIn, totalOut := m.TotalInputTokens, m.TotalOutputTokens
		avgIn := float64(totalIn) / float64(m.Count)
		avgOut := float64(totalOut) / float64(m.Count)
		minIn := clearSentinel(m.MinInputTokens)
		minOut := clearSentinel(m.MinOutputTokens)
		maxIn, maxOut := m.MaxInputTokens, m.MaxOutputTokens

		snap.TotalInputTokens = &totalIn
		snap.TotalOutputTokens = &totalOut
		snap.AvgInputTokens = &avgIn
		snap.AvgOutputTokens = &avgOut
		snap.MinInputTokens = &minIn
		snap.MaxInputTokens = &maxIn
		snap.MinOutputTokens = &minOut
		snap.MaxOutputTokens = &maxOut
	}

	return snap
}

func clearSentinel(v int64) int64 {
	if v == math.MaxInt64 {
		return 0
	}
	return v
}

// Snapshot returns a point-in-time view of all operations.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Search:        snapshotOp(c.ops[OpSearch], false),
		Ingest:        snapshotOp(c.ops[OpIngest], false),
		AIGenerate:    snapshotOp(c.ops[OpAIGenerate], true),
		DBQuery:       snapshotOp(c.ops[OpDBQuery], false),
		Backup:        snapshotOp(c.ops[OpBackup], false),
	}
}
