package eviction

import (
	"math/rand"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/tier"
)

// RandomVictimFinder evicts a uniformly chosen member.
type RandomVictimFinder struct {
	rng *rand.Rand
}

// NewRandomVictimFinder returns a random evictor drawing from rng.
func NewRandomVictimFinder(rng *rand.Rand) *RandomVictimFinder {
	if rng == nil {
		panic("random victim finder requires a random source")
	}

	return &RandomVictimFinder{rng: rng}
}

// FindVictim returns a random member.
func (e *RandomVictimFinder) FindVictim(view tier.View) (vm.PID, bool) {
	if view.Empty() {
		return 0, false
	}

	return view.Members[e.rng.Intn(len(view.Members))], true
}
