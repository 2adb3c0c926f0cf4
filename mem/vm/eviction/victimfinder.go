package eviction

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/tier"
	"github.com/sarchlab/hvmm/sim"
)

// A VictimFinder decides which RAM member should be evicted. It never
// changes the view it is given. The bool is false only if the view is empty.
type VictimFinder interface {
	FindVictim(view tier.View) (vm.PID, bool)
}

// NewVictimFinder returns the VictimFinder implementing the policy. The rng is
// only used by the Random policy.
func NewVictimFinder(p Policy, rng *rand.Rand) VictimFinder {
	switch p {
	case FIFO:
		return NewFIFOVictimFinder()
	case LRU:
		return NewLRUVictimFinder()
	case LFU:
		return NewLFUVictimFinder()
	case LIFO:
		return NewLIFOVictimFinder()
	case MRU:
		return NewMRUVictimFinder()
	case Random:
		return NewRandomVictimFinder(rng)
	default:
		panic(fmt.Sprintf("unsupported policy %s", p))
	}
}

// FIFOVictimFinder evicts the process that entered RAM first.
type FIFOVictimFinder struct {
}

// NewFIFOVictimFinder returns a newly constructed FIFO evictor.
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return &FIFOVictimFinder{}
}

// FindVictim returns the member with the smallest added time. Ties go to the
// earliest inserted member.
func (e *FIFOVictimFinder) FindVictim(view tier.View) (vm.PID, bool) {
	if view.Empty() {
		return 0, false
	}

	victim := view.Members[0]
	for _, pid := range view.Members[1:] {
		if addedAt(view, pid) < addedAt(view, victim) {
			victim = pid
		}
	}

	return victim, true
}

// LIFOVictimFinder evicts the process that entered RAM last.
type LIFOVictimFinder struct {
}

// NewLIFOVictimFinder returns a newly constructed LIFO evictor.
func NewLIFOVictimFinder() *LIFOVictimFinder {
	return &LIFOVictimFinder{}
}

// FindVictim returns the member with the largest added time.
func (e *LIFOVictimFinder) FindVictim(view tier.View) (vm.PID, bool) {
	if view.Empty() {
		return 0, false
	}

	victim := view.Members[0]
	for _, pid := range view.Members[1:] {
		if addedAtOrZero(view, pid) > addedAtOrZero(view, victim) {
			victim = pid
		}
	}

	return victim, true
}

// LFUVictimFinder evicts the least frequently used process.
type LFUVictimFinder struct {
}

// NewLFUVictimFinder returns a newly constructed LFU evictor.
func NewLFUVictimFinder() *LFUVictimFinder {
	return &LFUVictimFinder{}
}

// FindVictim returns the member with the lowest access frequency. Ties are
// broken as FIFO does.
func (e *LFUVictimFinder) FindVictim(view tier.View) (vm.PID, bool) {
	if view.Empty() {
		return 0, false
	}

	victim := view.Members[0]
	for _, pid := range view.Members[1:] {
		f, vf := frequency(view, pid), frequency(view, victim)
		if f < vf || (f == vf && addedAt(view, pid) < addedAt(view, victim)) {
			victim = pid
		}
	}

	return victim, true
}

func addedAt(view tier.View, pid vm.PID) sim.VTime {
	t, found := view.Tracking[pid]
	if !found {
		return math.MaxUint64
	}

	return t.AddedAt
}

func addedAtOrZero(view tier.View, pid vm.PID) sim.VTime {
	return view.Tracking[pid].AddedAt
}

func frequency(view tier.View, pid vm.PID) int {
	return view.Tracking[pid].AccessFrequency
}
