package eviction

import (
	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/tier"
)

// LRUVictimFinder evicts the least recently used process.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	return &LRUVictimFinder{}
}

// FindVictim returns the earliest entry of the access order that is still a
// member. If no entry matches, the first member is chosen.
func (e *LRUVictimFinder) FindVictim(view tier.View) (vm.PID, bool) {
	if view.Empty() {
		return 0, false
	}

	for _, pid := range view.AccessOrder {
		if view.Contains(pid) {
			return pid, true
		}
	}

	return view.Members[0], true
}

// MRUVictimFinder evicts the most recently used process.
type MRUVictimFinder struct {
}

// NewMRUVictimFinder returns a newly constructed mru evictor
func NewMRUVictimFinder() *MRUVictimFinder {
	return &MRUVictimFinder{}
}

// FindVictim returns the latest entry of the access order that is still a
// member. If no entry matches, the last member is chosen.
func (e *MRUVictimFinder) FindVictim(view tier.View) (vm.PID, bool) {
	if view.Empty() {
		return 0, false
	}

	for i := len(view.AccessOrder) - 1; i >= 0; i-- {
		pid := view.AccessOrder[i]
		if view.Contains(pid) {
			return pid, true
		}
	}

	return view.Members[len(view.Members)-1], true
}
