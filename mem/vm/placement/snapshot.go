package placement

import (
	"fmt"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/stats"
	"github.com/sarchlab/hvmm/mem/vm/tier"
	"github.com/sarchlab/hvmm/sim"
)

// Outcome tells how an access was served.
type Outcome int

// The access outcomes.
const (
	OutcomeNotFound Outcome = iota
	OutcomeCacheHit
	OutcomeRAMHit
	OutcomePageFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCacheHit:
		return "cache hit"
	case OutcomeRAMHit:
		return "RAM hit"
	case OutcomePageFault:
		return "page fault"
	default:
		return "not found"
	}
}

// IsHit tells if the access was served without a page fault.
func (o Outcome) IsHit() bool {
	return o == OutcomeCacheHit || o == OutcomeRAMHit
}

// A Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Time      sim.VTime      `json:"time"`
	Config    Config         `json:"config"`
	RAM       []vm.PID       `json:"ram"`
	Swap      []vm.PID       `json:"swap"`
	Cache     []vm.PID       `json:"cache"`
	Dirty     []vm.PID       `json:"dirty"`
	Counters  stats.Counters `json:"counters"`
	HitRate   string         `json:"hit_rate"`
	FaultRate string         `json:"fault_rate"`
	Thrashing bool           `json:"thrashing"`
}

// Snapshot returns the current state. It does not change the engine.
func (e *Engine) Snapshot() Snapshot {
	c := e.stats.Counters()

	return Snapshot{
		Time:      e.clock.CurrentTime(),
		Config:    e.config,
		RAM:       e.ram.Members(),
		Swap:      e.swap.Members(),
		Cache:     e.cache.Members(),
		Dirty:     e.ram.DirtyMembers(),
		Counters:  c,
		HitRate:   stats.FormatRate(c.HitRate()),
		FaultRate: stats.FormatRate(c.FaultRate()),
		Thrashing: e.stats.Thrashing(),
	}
}

// History returns the recent access outcomes, oldest first.
func (e *Engine) History() []stats.Outcome {
	return e.stats.History()
}

// Location tells where a process lives.
func (e *Engine) Location(pid vm.PID) vm.Location {
	switch {
	case e.ram.Contains(pid):
		return vm.InRAM
	case e.swap.Contains(pid):
		return vm.InSwap
	case e.terminated[pid]:
		return vm.Terminated
	default:
		return vm.Unallocated
	}
}

// ProcessInfo describes a single process.
type ProcessInfo struct {
	PID             vm.PID         `json:"pid"`
	SizeKB          int            `json:"size_kb"`
	Size            string         `json:"size"`
	Location        string         `json:"location"`
	Tracking        *tier.Tracking `json:"tracking,omitempty"`
	Cached          bool           `json:"cached"`
	CacheAccessTime sim.VTime      `json:"cache_access_time,omitempty"`
}

// Describe returns what is known about a process.
func (e *Engine) Describe(pid vm.PID) (ProcessInfo, error) {
	if !e.catalog.Contains(pid) {
		return ProcessInfo{}, fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
	}

	size := e.catalog.SizeKB(pid)
	info := ProcessInfo{
		PID:      pid,
		SizeKB:   size,
		Size:     vm.FormatSize(size),
		Location: e.Location(pid).String(),
	}

	if t, ok := e.ram.TrackingOf(pid); ok {
		info.Tracking = &t
	}

	if entry, ok := e.cache.Get(pid); ok {
		info.Cached = true
		info.CacheAccessTime = entry.LastAccessTime
	}

	return info, nil
}

// PickAvailable returns a random process that is in no tier and was not
// terminated. It returns false if there is none.
func (e *Engine) PickAvailable() (vm.PID, bool) {
	candidates := []vm.PID{}

	for _, pid := range e.catalog.PIDs() {
		if e.Location(pid) == vm.Unallocated && !e.cache.Contains(pid) {
			candidates = append(candidates, pid)
		}
	}

	return e.pick(candidates)
}

// PickExisting returns a random process that is in RAM, swap or the cache. It
// returns false if there is none.
func (e *Engine) PickExisting() (vm.PID, bool) {
	candidates := []vm.PID{}

	for _, pid := range e.catalog.PIDs() {
		l := e.Location(pid)
		if l == vm.InRAM || l == vm.InSwap || e.cache.Contains(pid) {
			candidates = append(candidates, pid)
		}
	}

	return e.pick(candidates)
}

func (e *Engine) pick(candidates []vm.PID) (vm.PID, bool) {
	if len(candidates) == 0 {
		return 0, false
	}

	return candidates[e.rng.Intn(len(candidates))], true
}
