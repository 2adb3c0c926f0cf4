// Package stats keeps the access counters and the thrashing detector of a
// placement engine.
package stats

import "fmt"

const (
	// HistorySize is the number of recent outcomes considered for thrashing.
	HistorySize = 15

	// ThrashingThreshold is the fault ratio at which the window is considered
	// thrashing.
	ThrashingThreshold = 0.7
)

// Counters are the raw access statistics. All fields only grow, except that
// TotalAccesses is rolled back when an access finds nothing.
type Counters struct {
	CacheHits     uint64
	CacheAccesses uint64
	RAMHits       uint64
	RAMAccesses   uint64
	PageFaults    uint64
	SwapAccesses  uint64
	TLBHits       uint64
	TLBMisses     uint64
	TotalAccesses uint64
	WriteBacks    uint64
}

// MemoryAccesses is the denominator of the hit and fault rates.
func (c Counters) MemoryAccesses() uint64 {
	return c.CacheAccesses + c.RAMAccesses + c.SwapAccesses
}

// HitRate returns the share of memory accesses served by cache or RAM. The
// bool is false when there were no memory accesses yet.
func (c Counters) HitRate() (float64, bool) {
	d := c.MemoryAccesses()
	if d == 0 {
		return 0, false
	}

	return float64(c.CacheHits+c.RAMHits) / float64(d), true
}

// FaultRate returns the share of memory accesses that page faulted. The bool
// is false when there were no memory accesses yet.
func (c Counters) FaultRate() (float64, bool) {
	d := c.MemoryAccesses()
	if d == 0 {
		return 0, false
	}

	return float64(c.PageFaults) / float64(d), true
}

// FormatRate renders a rate as a percentage with one decimal, or N/A.
func FormatRate(rate float64, ok bool) string {
	if !ok {
		return "N/A"
	}

	return fmt.Sprintf("%.1f%%", rate*100)
}

// A Tracker accumulates Counters and the access history.
type Tracker struct {
	counters Counters
	history  *History
}

// NewTracker creates a Tracker with an empty window of HistorySize outcomes.
func NewTracker() *Tracker {
	return &Tracker{history: NewHistory(HistorySize)}
}

// Counters returns a copy of the current counters.
func (t *Tracker) Counters() Counters {
	return t.counters
}

// History returns the outcomes in the window from oldest to newest.
func (t *Tracker) History() []Outcome {
	return t.history.Outcomes()
}

// BeginAccess counts an access attempt.
func (t *Tracker) BeginAccess() {
	t.counters.TotalAccesses++
}

// RollbackAccess withdraws an access attempt that found nothing.
func (t *Tracker) RollbackAccess() {
	if t.counters.TotalAccesses > 0 {
		t.counters.TotalAccesses--
	}
}

// CacheHit records an access served by the cache.
func (t *Tracker) CacheHit() {
	t.counters.CacheHits++
	t.counters.CacheAccesses++
	t.counters.TLBHits++
	t.history.Push(Hit)
}

// RAMHit records an access served by RAM.
func (t *Tracker) RAMHit() {
	t.counters.RAMHits++
	t.counters.RAMAccesses++
	t.counters.TLBHits++
	t.history.Push(Hit)
}

// PageFault records an access served from swap.
func (t *Tracker) PageFault() {
	t.counters.PageFaults++
	t.counters.SwapAccesses++
	t.counters.TLBMisses++
	t.history.Push(Fault)
}

// CachePromotion records an explicit move of a RAM process into the cache. It
// counts as a RAM access and a hit, but not as a RAM hit.
func (t *Tracker) CachePromotion() {
	t.counters.RAMAccesses++
	t.counters.TotalAccesses++
	t.history.Push(Hit)
}

// WriteBack records the flush of a dirty page.
func (t *Tracker) WriteBack() {
	t.counters.WriteBacks++
}

// Thrashing tells if the recent window is dominated by faults. The window must
// be at least half full before thrashing can be reported.
func (t *Tracker) Thrashing() bool {
	n := t.history.Len()
	if 2*n < t.history.Size() {
		return false
	}

	return float64(t.history.Faults())/float64(n) >= ThrashingThreshold
}

// Reset clears all counters and the history.
func (t *Tracker) Reset() {
	t.counters = Counters{}
	t.history.Clear()
}
