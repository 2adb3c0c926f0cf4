package placement

import (
	"fmt"

	"github.com/sarchlab/hvmm/mem/vm/eviction"
)

// Config holds the capacities and the policy of an Engine.
type Config struct {
	RAMCapacity   int             `json:"ram_capacity"`
	SwapCapacity  int             `json:"swap_capacity"`
	CacheCapacity int             `json:"cache_capacity"`
	Policy        eviction.Policy `json:"policy"`
}

// DefaultConfig returns four RAM slots, four swap slots, three cache slots
// and FIFO replacement.
func DefaultConfig() Config {
	return Config{
		RAMCapacity:   4,
		SwapCapacity:  4,
		CacheCapacity: 3,
		Policy:        eviction.FIFO,
	}
}

// Validate reports ErrInvalidConfig if RAM has no slot, another capacity is
// negative or the policy is not supported.
func (c Config) Validate() error {
	if c.RAMCapacity < 1 {
		return fmt.Errorf("%w: RAM capacity must be at least 1, got %d",
			ErrInvalidConfig, c.RAMCapacity)
	}

	if c.SwapCapacity < 0 {
		return fmt.Errorf("%w: swap capacity must not be negative, got %d",
			ErrInvalidConfig, c.SwapCapacity)
	}

	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache capacity must not be negative, got %d",
			ErrInvalidConfig, c.CacheCapacity)
	}

	return validatePolicy(c.Policy)
}

func validatePolicy(p eviction.Policy) error {
	for _, known := range eviction.Policies() {
		if p == known {
			return nil
		}
	}

	return fmt.Errorf("%w: unsupported policy %s", ErrInvalidConfig, p)
}
