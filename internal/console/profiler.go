// Package console implements the debug/profiling console: a bounded,
// concurrent-safe collector of per-statement diagnostics with HTML and JSON
// renderings.
package console

import (
	"sync"
	"time"
)

// DefaultSize is the default ring buffer capacity
const DefaultSize = 200

// QueryProfile is one recorded statement
type QueryProfile struct {
	Seq        uint64    `json:"seq"`
	SQL        string    `json:"sql"`
	DurationMs float64   `json:"durationMs"`
	Rows       int       `json:"rows"`
	CacheHit   bool      `json:"cacheHit"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Summary aggregates the recorded statements
type Summary struct {
	TotalQueries    uint64  `json:"totalQueries"`
	TotalDurationMs float64 `json:"totalDurationMs"`
	CacheHits       uint64  `json:"cacheHits"`
	Errors          uint64  `json:"errors"`
}

// Profiler collects per-statement diagnostics in a bounded ring buffer.
// It implements storage.Recorder.
type Profiler struct {
	mu      sync.Mutex
	entries []QueryProfile
	head    int // next write position
	filled  bool
	seq     uint64
	summary Summary
}

// NewProfiler creates a profiler retaining the last size statements
func NewProfiler(size int) *Profiler {
	if size <= 0 {
		size = DefaultSize
	}
	return &Profiler{
		entries: make([]QueryProfile, size),
	}
}

// Record stores one statement's diagnostics
func (p *Profiler) Record(sql string, durationMs float64, rows int, cacheHit bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	entry := QueryProfile{
		Seq:        p.seq,
		SQL:        sql,
		DurationMs: durationMs,
		Rows:       rows,
		CacheHit:   cacheHit,
		At:         time.Now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
		p.summary.Errors++
	}
	if cacheHit {
		p.summary.CacheHits++
	}
	p.summary.TotalQueries++
	p.summary.TotalDurationMs += durationMs

	p.entries[p.head] = entry
	p.head++
	if p.head == len(p.entries) {
		p.head = 0
		p.filled = true
	}
}

// Snapshot returns retained entries oldest-first plus the running summary.
// The summary covers all recorded statements, not just the retained window.
func (p *Profiler) Snapshot() ([]QueryProfile, Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []QueryProfile
	if p.filled {
		out = make([]QueryProfile, 0, len(p.entries))
		out = append(out, p.entries[p.head:]...)
		out = append(out, p.entries[:p.head]...)
	} else {
		out = append(out, p.entries[:p.head]...)
	}
	return out, p.summary
}

// Reset discards all recorded entries and aggregates
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = make([]QueryProfile, len(p.entries))
	p.head = 0
	p.filled = false
	p.seq = 0
	p.summary = Summary{}
}
