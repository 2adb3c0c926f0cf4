// Package cache provides the cache overlay that mirrors RAM-resident
// processes for fast lookup.
package cache

import (
	"errors"
	"fmt"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/sim"
)

// ErrCacheDisabled is returned when putting into a cache of capacity 0.
var ErrCacheDisabled = errors.New("cache disabled")

// An Entry is a cached process.
type Entry struct {
	PID            vm.PID
	LastAccessTime sim.VTime
}

// PutResult describes what a Put did.
type PutResult struct {
	// Refreshed is set if the process was already cached and only its access
	// time changed.
	Refreshed bool

	// Evicted holds the entry removed to make room, if HasEvicted is set.
	Evicted    Entry
	HasEvicted bool
}

// An Overlay is a fixed-capacity set of cached processes. It is independent
// from the RAM and swap tiers: caching a process does not move it.
type Overlay struct {
	capacity int
	entries  []*Entry
	index    map[vm.PID]*Entry
}

// NewOverlay creates an overlay. A capacity of 0 disables the cache.
func NewOverlay(capacity int) *Overlay {
	o := &Overlay{}
	o.Reset(capacity)

	return o
}

// Reset empties the overlay and applies a new capacity.
func (o *Overlay) Reset(capacity int) {
	if capacity < 0 {
		panic(fmt.Sprintf("capacity must not be negative, got %d", capacity))
	}

	o.capacity = capacity
	o.entries = nil
	o.index = make(map[vm.PID]*Entry)
}

// Capacity returns the maximum number of entries.
func (o *Overlay) Capacity() int {
	return o.capacity
}

// Len returns the number of cached processes.
func (o *Overlay) Len() int {
	return len(o.entries)
}

// Enabled tells if the overlay can hold anything.
func (o *Overlay) Enabled() bool {
	return o.capacity > 0
}

// Get looks up a cached process.
func (o *Overlay) Get(pid vm.PID) (Entry, bool) {
	e, found := o.index[pid]
	if !found {
		return Entry{}, false
	}

	return *e, true
}

// Contains tells if the process is cached.
func (o *Overlay) Contains(pid vm.PID) bool {
	_, found := o.index[pid]
	return found
}

// Members returns the cached processes in insertion order.
func (o *Overlay) Members() []vm.PID {
	pids := make([]vm.PID, 0, len(o.entries))
	for _, e := range o.entries {
		pids = append(pids, e.PID)
	}

	return pids
}

// Put caches the process with the given access time. A cached process only
// has its access time refreshed. Otherwise, if the overlay is full, the entry
// with the oldest access time is evicted first; ties go to the earliest
// inserted entry.
func (o *Overlay) Put(pid vm.PID, now sim.VTime) (PutResult, error) {
	if !o.Enabled() {
		return PutResult{}, ErrCacheDisabled
	}

	if o.Touch(pid, now) {
		return PutResult{Refreshed: true}, nil
	}

	result := PutResult{}

	if len(o.entries) >= o.capacity {
		victim := o.findVictim()
		result.Evicted = *victim
		result.HasEvicted = true
		o.Remove(victim.PID)
	}

	e := &Entry{PID: pid, LastAccessTime: now}
	o.entries = append(o.entries, e)
	o.index[pid] = e

	return result, nil
}

// Touch sets the access time of a cached process. It returns false if the
// process is not cached.
func (o *Overlay) Touch(pid vm.PID, now sim.VTime) bool {
	e, found := o.index[pid]
	if !found {
		return false
	}

	e.LastAccessTime = now

	return true
}

func (o *Overlay) findVictim() *Entry {
	victim := o.entries[0]
	for _, e := range o.entries[1:] {
		if e.LastAccessTime < victim.LastAccessTime {
			victim = e
		}
	}

	return victim
}

// Remove drops a process from the overlay. It returns false if the process
// was not cached.
func (o *Overlay) Remove(pid vm.PID) bool {
	if _, found := o.index[pid]; !found {
		return false
	}

	delete(o.index, pid)

	for i, e := range o.entries {
		if e.PID == pid {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			break
		}
	}

	return true
}

// Clear removes every entry at once and returns the processes that were
// cached, in insertion order.
func (o *Overlay) Clear() []vm.PID {
	cleared := o.Members()

	o.entries = nil
	o.index = make(map[vm.PID]*Entry)

	return cleared
}
