package placement

import (
	"math/rand"

	"github.com/sarchlab/hvmm/mem/cache"
	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/eviction"
	"github.com/sarchlab/hvmm/mem/vm/stats"
	"github.com/sarchlab/hvmm/mem/vm/tier"
	"github.com/sarchlab/hvmm/sim"
)

// A Builder can build placement engines.
type Builder struct {
	config       Config
	maxProcessID int
	randSource   rand.Source
	idGenerator  sim.IDGenerator
	victimFinder eviction.VictimFinder
}

// MakeBuilder returns a Builder with the default configuration, a pool of
// DefaultMaxProcessID processes and a fixed random seed.
func MakeBuilder() Builder {
	return Builder{
		config:       DefaultConfig(),
		maxProcessID: vm.DefaultMaxProcessID,
	}
}

// WithConfig replaces all the capacities and the policy at once.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithRAMCapacity sets the number of processes RAM can hold.
func (b Builder) WithRAMCapacity(n int) Builder {
	b.config.RAMCapacity = n
	return b
}

// WithSwapCapacity sets the number of processes swap can hold.
func (b Builder) WithSwapCapacity(n int) Builder {
	b.config.SwapCapacity = n
	return b
}

// WithCacheCapacity sets the number of cache entries. Use 0 to disable the
// cache.
func (b Builder) WithCacheCapacity(n int) Builder {
	b.config.CacheCapacity = n
	return b
}

// WithPolicy sets the page-replacement policy.
func (b Builder) WithPolicy(p eviction.Policy) Builder {
	b.config.Policy = p
	return b
}

// WithMaxProcessID sets the size of the process pool.
func (b Builder) WithMaxProcessID(n int) Builder {
	b.maxProcessID = n
	return b
}

// WithRandSource sets the source of randomness used for process sizes, the
// Random policy and the random process picks.
func (b Builder) WithRandSource(src rand.Source) Builder {
	b.randSource = src
	return b
}

// WithSeed is a shortcut for WithRandSource(rand.NewSource(seed)).
func (b Builder) WithSeed(seed int64) Builder {
	b.randSource = rand.NewSource(seed)
	return b
}

// WithIDGenerator sets the generator of event IDs.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// WithVictimFinder overrides the victim finder derived from the policy. The
// override is dropped when the policy is changed later.
func (b Builder) WithVictimFinder(f eviction.VictimFinder) Builder {
	b.victimFinder = f
	return b
}

// Build creates a new Engine.
func (b Builder) Build(name string) *Engine {
	b.parametersMustBeValid()

	e := &Engine{
		NamedBase: sim.MakeNamedBase(name),
		config:    b.config,
		catalog:   vm.NewCatalog(b.maxProcessID),
		ram:       tier.NewTrackedStore(b.config.RAMCapacity),
		swap:      tier.NewStore(b.config.SwapCapacity),
		cache:     cache.NewOverlay(b.config.CacheCapacity),
		stats:     stats.NewTracker(),
	}

	src := b.randSource
	if src == nil {
		src = rand.NewSource(1)
	}

	e.rng = rand.New(src)

	e.idGen = b.idGenerator
	if e.idGen == nil {
		e.idGen = sim.NewSequentialIDGenerator()
	}

	e.victimFinder = b.victimFinder
	if e.victimFinder == nil {
		e.victimFinder = eviction.NewVictimFinder(b.config.Policy, e.rng)
	}

	e.reset()

	return e
}

func (b Builder) parametersMustBeValid() {
	if err := b.config.Validate(); err != nil {
		panic(err)
	}

	if b.maxProcessID < 1 {
		panic("max process ID must be at least 1")
	}
}
