package placement

import (
	"errors"

	"github.com/sarchlab/hvmm/mem/cache"
)

// Errors returned by the Engine. They are wrapped with context, so callers
// should match them with errors.Is.
var (
	ErrAlreadyAllocated   = errors.New("process already allocated")
	ErrNotFound           = errors.New("process not found")
	ErrNotInRAM           = errors.New("process not in RAM")
	ErrCacheDisabled      = cache.ErrCacheDisabled
	ErrEvictionImpossible = errors.New("no eviction victim available")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrProcessLost        = errors.New("process lost during page fault")
	ErrUnknownProcess     = errors.New("unknown process")
	ErrTerminated         = errors.New("process terminated")
)
