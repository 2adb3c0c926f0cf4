// Package placement decides where the processes of a three-tier memory
// hierarchy live.
//
// An Engine owns a cache overlay, RAM and swap. It allocates processes into
// RAM, evicts with the configured policy when RAM is full, serves page faults
// from swap and keeps the access statistics. Every operation runs to
// completion and returns the events it produced, in order. The same events are
// delivered to the hooks registered on the engine.
//
// An Engine is not safe for concurrent use.
package placement

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/hvmm/mem/cache"
	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/eviction"
	"github.com/sarchlab/hvmm/mem/vm/stats"
	"github.com/sarchlab/hvmm/mem/vm/tier"
	"github.com/sarchlab/hvmm/sim"
)

// Names of the operations, as reported in OperationRecord.
const (
	OpAllocate    = "allocate"
	OpAccess      = "access"
	OpMarkDirty   = "mark_dirty"
	OpAddToCache  = "add_to_cache"
	OpClearCache  = "clear_cache"
	OpTerminate   = "terminate"
	OpReconfigure = "reconfigure"
	OpSetPolicy   = "set_policy"
	OpReset       = "reset"
)

// Engine is the placement engine.
type Engine struct {
	sim.HookableBase
	sim.NamedBase

	config  Config
	catalog *vm.Catalog
	ram     *tier.Store
	swap    *tier.Store
	cache   *cache.Overlay
	stats   *stats.Tracker

	clock        sim.LogicalClock
	now          sim.VTime
	rng          *rand.Rand
	idGen        sim.IDGenerator
	victimFinder eviction.VictimFinder

	terminated map[vm.PID]bool
	thrashing  bool

	seq     uint64
	pending []Event
}

// CurrentTime returns the logical time of the last operation.
func (e *Engine) CurrentTime() sim.VTime {
	return e.clock.CurrentTime()
}

// Config returns the current capacities and policy.
func (e *Engine) Config() Config {
	return e.config
}

// Catalog returns the process pool.
func (e *Engine) Catalog() *vm.Catalog {
	return e.catalog
}

// Allocate places a new process into RAM, evicting another one if RAM is full.
func (e *Engine) Allocate(pid vm.PID) ([]Event, error) {
	e.begin()
	err := e.allocate(pid)

	return e.finish(OpAllocate, pid, err), err
}

func (e *Engine) allocate(pid vm.PID) error {
	if err := e.processMustBeLive(pid); err != nil {
		return err
	}

	if e.ram.Contains(pid) || e.swap.Contains(pid) || e.cache.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrAlreadyAllocated, pid)
	}

	if e.ram.Full() {
		if _, err := e.evictOne(); err != nil {
			return err
		}
	}

	if err := e.ram.Insert(pid, e.now); err != nil {
		return fmt.Errorf("%w: %v", ErrEvictionImpossible, err)
	}

	e.emit(EventAllocated, pid, vm.FormatSize(e.catalog.SizeKB(pid)))

	return nil
}

// AccessResult is the result of an Access.
type AccessResult struct {
	Outcome Outcome
	Events  []Event
}

// Access reads a process. It is served by the cache, by RAM, or by a page
// fault that brings the process back from swap.
//
// If the page fault cannot make room in RAM the process is lost: it is no
// longer in any tier and ErrProcessLost is returned together with the events.
func (e *Engine) Access(pid vm.PID) (AccessResult, error) {
	e.begin()
	outcome, err := e.access(pid)

	return AccessResult{
		Outcome: outcome,
		Events:  e.finish(OpAccess, pid, err),
	}, err
}

func (e *Engine) access(pid vm.PID) (Outcome, error) {
	if !e.catalog.Contains(pid) {
		return OutcomeNotFound, fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
	}

	e.stats.BeginAccess()

	switch {
	case e.cache.Touch(pid, e.now):
		e.stats.CacheHit()
		e.emit(EventCacheHit, pid, "")
		e.checkThrashing()

		return OutcomeCacheHit, nil
	case e.ram.Contains(pid):
		e.stats.RAMHit()
		e.ram.Touch(pid, e.now)
		e.emit(EventRAMHit, pid, "")
		e.admitToCache(pid)
		e.checkThrashing()

		return OutcomeRAMHit, nil
	case e.swap.Contains(pid):
		e.stats.PageFault()
		e.emit(EventPageFault, pid, "")
		err := e.servePageFault(pid)
		e.checkThrashing()

		return OutcomePageFault, err
	default:
		e.stats.RollbackAccess()
		return OutcomeNotFound, fmt.Errorf("%w: %s", ErrNotFound, pid)
	}
}

func (e *Engine) servePageFault(pid vm.PID) error {
	e.swap.Remove(pid)

	if e.ram.Full() {
		if _, err := e.evictOne(); err != nil {
			e.emit(EventProcessLost, pid, err.Error())
			return fmt.Errorf("%w: %s: %v", ErrProcessLost, pid, err)
		}
	}

	if err := e.ram.Insert(pid, e.now); err != nil {
		e.emit(EventProcessLost, pid, err.Error())
		return fmt.Errorf("%w: %s: %v", ErrProcessLost, pid, err)
	}

	e.emit(EventLoadedIntoRAM, pid, "")
	e.admitToCache(pid)

	return nil
}

// MarkDirty flags a RAM process as modified. Marking a dirty process again is
// not an error.
func (e *Engine) MarkDirty(pid vm.PID) ([]Event, error) {
	e.begin()
	err := e.markDirty(pid)

	return e.finish(OpMarkDirty, pid, err), err
}

func (e *Engine) markDirty(pid vm.PID) error {
	if !e.catalog.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
	}

	if !e.ram.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrNotInRAM, pid)
	}

	if !e.ram.MarkDirty(pid) {
		e.emit(EventAlreadyDirty, pid, "")
		return nil
	}

	e.emit(EventMarkedDirty, pid, "")

	return nil
}

// AddToCache promotes a RAM process into the cache. A cached process only has
// its access time refreshed.
func (e *Engine) AddToCache(pid vm.PID) ([]Event, error) {
	e.begin()
	err := e.addToCache(pid)

	return e.finish(OpAddToCache, pid, err), err
}

func (e *Engine) addToCache(pid vm.PID) error {
	if !e.catalog.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
	}

	if !e.cache.Enabled() {
		return fmt.Errorf("%w: cannot add %s", ErrCacheDisabled, pid)
	}

	if !e.ram.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrNotInRAM, pid)
	}

	if e.cache.Contains(pid) {
		e.admitToCache(pid)
		return nil
	}

	e.stats.CachePromotion()
	e.ram.Touch(pid, e.now)
	e.admitToCache(pid)
	e.checkThrashing()

	return nil
}

// ClearCache drops every cache entry.
func (e *Engine) ClearCache() []Event {
	e.begin()

	dropped := e.cache.Clear()
	e.emit(EventCacheCleared, 0, fmt.Sprintf("%d entries", len(dropped)))

	return e.finish(OpClearCache, 0, nil)
}

// Terminate removes a process from every tier. A terminated process cannot be
// allocated again until the engine is reset or reconfigured.
func (e *Engine) Terminate(pid vm.PID) ([]Event, error) {
	e.begin()
	err := e.terminate(pid)

	return e.finish(OpTerminate, pid, err), err
}

func (e *Engine) terminate(pid vm.PID) error {
	if !e.catalog.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
	}

	inCache := e.cache.Remove(pid)
	inRAM := e.ram.Remove(pid)
	inSwap := e.swap.Remove(pid)

	if !inCache && !inRAM && !inSwap {
		return fmt.Errorf("%w: %s", ErrNotFound, pid)
	}

	e.terminated[pid] = true
	e.emit(EventTerminated, pid, "")

	return nil
}

// Reconfigure applies new capacities and resets the engine. Process sizes are
// drawn again.
func (e *Engine) Reconfigure(ramCapacity, swapCapacity, cacheCapacity int) error {
	c := e.config
	c.RAMCapacity = ramCapacity
	c.SwapCapacity = swapCapacity
	c.CacheCapacity = cacheCapacity

	e.begin()

	err := c.Validate()
	if err == nil {
		e.config = c
		e.reset()
		e.emitReset()
	}

	e.finish(OpReconfigure, 0, err)

	return err
}

// Reset empties all tiers and clears the statistics while keeping the
// capacities and the policy. Process sizes are drawn again.
func (e *Engine) Reset() {
	e.begin()
	e.reset()
	e.emitReset()
	e.finish(OpReset, 0, nil)
}

// SetPolicy changes the page-replacement policy. Residents and statistics are
// kept.
func (e *Engine) SetPolicy(p eviction.Policy) error {
	e.begin()

	err := validatePolicy(p)
	if err == nil {
		e.config.Policy = p
		e.victimFinder = eviction.NewVictimFinder(p, e.rng)
	}

	e.finish(OpSetPolicy, 0, err)

	return err
}

func (e *Engine) reset() {
	e.ram.Reset(e.config.RAMCapacity)
	e.swap.Reset(e.config.SwapCapacity)
	e.cache.Reset(e.config.CacheCapacity)
	e.stats.Reset()
	e.terminated = make(map[vm.PID]bool)
	e.thrashing = false
	e.catalog.AssignSizes(e.rng)
}

func (e *Engine) emitReset() {
	e.emit(EventReset, 0, fmt.Sprintf("RAM %d, swap %d, cache %d, %s",
		e.config.RAMCapacity, e.config.SwapCapacity, e.config.CacheCapacity,
		e.config.Policy))
}

func (e *Engine) processMustBeLive(pid vm.PID) error {
	if !e.catalog.Contains(pid) {
		return fmt.Errorf("%w: %s", ErrUnknownProcess, pid)
	}

	if e.terminated[pid] {
		return fmt.Errorf("%w: %s", ErrTerminated, pid)
	}

	return nil
}

// evictOne makes room in RAM. The victim leaves the cache too, is written back
// if dirty, and is moved to swap or discarded when swap is full.
func (e *Engine) evictOne() (vm.PID, error) {
	e.emit(EventEvictionStarted, 0, e.config.Policy.String())

	victim, ok := e.victimFinder.FindVictim(e.ram.View())
	if !ok || !e.ram.Contains(victim) {
		return 0, fmt.Errorf("%w: %d processes in RAM",
			ErrEvictionImpossible, e.ram.Len())
	}

	e.emit(EventVictimChosen, victim, e.config.Policy.String())

	if e.ram.ClearDirty(victim) {
		e.stats.WriteBack()
		e.emit(EventWriteBack, victim, "")
	}

	e.ram.Remove(victim)

	if e.cache.Remove(victim) {
		e.emit(EventCacheEvicted, victim, "left RAM")
	}

	if err := e.swap.Insert(victim, e.now); err == nil {
		e.emit(EventMovedToSwap, victim, "")
	} else {
		e.emit(EventDiscarded, victim, "swap full")
	}

	e.emit(EventEvicted, victim, "")

	return victim, nil
}

func (e *Engine) admitToCache(pid vm.PID) {
	if !e.cache.Enabled() {
		return
	}

	res, err := e.cache.Put(pid, e.now)
	if err != nil {
		return
	}

	if res.Refreshed {
		e.emit(EventCacheRefreshed, pid, "")
		return
	}

	if res.HasEvicted {
		e.emit(EventCacheEvicted, res.Evicted.PID, "cache full")
	}

	e.emit(EventCacheAdded, pid, "")
}

func (e *Engine) checkThrashing() {
	thrashing := e.stats.Thrashing()

	switch {
	case thrashing && !e.thrashing:
		rate, _ := e.stats.Counters().FaultRate()
		e.emit(EventThrashingDetected, 0,
			"fault rate "+stats.FormatRate(rate, true))
	case !thrashing && e.thrashing:
		e.emit(EventThrashingResolved, 0, "")
	}

	e.thrashing = thrashing
}

func (e *Engine) begin() {
	e.now = e.clock.Tick()
	e.pending = nil
}

func (e *Engine) emit(kind EventKind, pid vm.PID, detail string) {
	evt := Event{
		ID:     e.idGen.Generate(),
		Seq:    e.seq,
		Time:   e.now,
		Kind:   kind,
		PID:    pid,
		Detail: detail,
	}
	e.seq++

	e.pending = append(e.pending, evt)

	if e.NumHooks() > 0 {
		e.InvokeHook(sim.HookCtx{
			Domain: e,
			Pos:    HookPosEvent,
			Item:   evt,
		})
	}
}

func (e *Engine) finish(op string, pid vm.PID, err error) []Event {
	events := e.pending
	e.pending = nil

	if e.NumHooks() > 0 {
		e.InvokeHook(sim.HookCtx{
			Domain: e,
			Pos:    HookPosOperationDone,
			Item: OperationRecord{
				Operation: op,
				PID:       pid,
				Time:      e.now,
				Err:       err,
				Snapshot:  e.Snapshot(),
			},
		})
	}

	return events
}
