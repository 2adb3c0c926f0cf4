// Package tier provides the fixed-capacity membership stores that model RAM
// and swap.
package tier

import (
	"container/list"
	"errors"
	"fmt"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/sim"
)

// ErrCapacityExceeded is returned when inserting into a full store.
var ErrCapacityExceeded = errors.New("tier capacity exceeded")

// Tracking is the bookkeeping a process carries while it is resident in a
// tracked store (RAM). It is created on insertion and dropped on removal.
type Tracking struct {
	Dirty           bool
	AddedAt         sim.VTime
	AccessFrequency int
	LastAccessRank  sim.VTime
}

// A Store holds an ordered set of processes bounded by a capacity.
//
// Membership keeps insertion order. A tracked store additionally keeps the
// per-process Tracking and an access-order sequence, where the least recently
// used process is at the front.
type Store struct {
	capacity int
	tracked  bool

	members     *list.List
	index       map[vm.PID]*list.Element
	accessOrder *list.List
	accessIndex map[vm.PID]*list.Element
	tracking    map[vm.PID]*Tracking
}

// NewStore creates a store that only tracks membership, as swap does.
func NewStore(capacity int) *Store {
	s := &Store{}
	s.Reset(capacity)

	return s
}

// NewTrackedStore creates a store that maintains Tracking for its members, as
// RAM does.
func NewTrackedStore(capacity int) *Store {
	s := &Store{tracked: true}
	s.Reset(capacity)

	return s
}

// Reset empties the store and applies a new capacity.
func (s *Store) Reset(capacity int) {
	if capacity < 0 {
		panic(fmt.Sprintf("capacity must not be negative, got %d", capacity))
	}

	s.capacity = capacity
	s.members = list.New()
	s.index = make(map[vm.PID]*list.Element)
	s.accessOrder = list.New()
	s.accessIndex = make(map[vm.PID]*list.Element)
	s.tracking = make(map[vm.PID]*Tracking)
}

// Capacity returns the maximum number of members.
func (s *Store) Capacity() int {
	return s.capacity
}

// Len returns the current number of members.
func (s *Store) Len() int {
	return s.members.Len()
}

// Full tells if another insertion would exceed the capacity.
func (s *Store) Full() bool {
	return s.members.Len() >= s.capacity
}

// Contains tells if the process is a member.
func (s *Store) Contains(pid vm.PID) bool {
	_, found := s.index[pid]
	return found
}

// Members returns the members in insertion order.
func (s *Store) Members() []vm.PID {
	return pidsOf(s.members)
}

// Insert adds the process at the end of the membership order. In a tracked
// store it also initializes the Tracking at time now.
func (s *Store) Insert(pid vm.PID, now sim.VTime) error {
	s.memberMustNotExist(pid)

	if s.Full() {
		return fmt.Errorf("%w: cannot insert %s, %d/%d used",
			ErrCapacityExceeded, pid, s.Len(), s.capacity)
	}

	s.index[pid] = s.members.PushBack(pid)

	if s.tracked {
		s.tracking[pid] = &Tracking{
			AddedAt:         now,
			AccessFrequency: 1,
			LastAccessRank:  now,
		}
		s.accessIndex[pid] = s.accessOrder.PushBack(pid)
	}

	return nil
}

// Remove drops the process and all its Tracking. It returns false if the
// process was not a member.
func (s *Store) Remove(pid vm.PID) bool {
	elem, found := s.index[pid]
	if !found {
		return false
	}

	s.members.Remove(elem)
	delete(s.index, pid)

	if accessElem, ok := s.accessIndex[pid]; ok {
		s.accessOrder.Remove(accessElem)
		delete(s.accessIndex, pid)
	}

	delete(s.tracking, pid)

	return true
}

// Touch records a hit on a member of a tracked store. The access frequency is
// incremented and the process moves to the most recently used end of the
// access order. It returns false if the process is not tracked.
func (s *Store) Touch(pid vm.PID, now sim.VTime) bool {
	t, found := s.tracking[pid]
	if !found {
		return false
	}

	t.AccessFrequency++
	t.LastAccessRank = now
	s.accessOrder.MoveToBack(s.accessIndex[pid])

	return true
}

// MarkDirty sets the dirty bit. It returns false if the process is not tracked
// or was already dirty.
func (s *Store) MarkDirty(pid vm.PID) bool {
	t, found := s.tracking[pid]
	if !found || t.Dirty {
		return false
	}

	t.Dirty = true

	return true
}

// ClearDirty clears the dirty bit. It returns true if the bit was set.
func (s *Store) ClearDirty(pid vm.PID) bool {
	t, found := s.tracking[pid]
	if !found || !t.Dirty {
		return false
	}

	t.Dirty = false

	return true
}

// IsDirty tells if the process is tracked and dirty.
func (s *Store) IsDirty(pid vm.PID) bool {
	t, found := s.tracking[pid]
	return found && t.Dirty
}

// TrackingOf returns a copy of the Tracking of a process.
func (s *Store) TrackingOf(pid vm.PID) (Tracking, bool) {
	t, found := s.tracking[pid]
	if !found {
		return Tracking{}, false
	}

	return *t, true
}

// DirtyMembers returns the dirty members in insertion order.
func (s *Store) DirtyMembers() []vm.PID {
	dirty := []vm.PID{}

	for e := s.members.Front(); e != nil; e = e.Next() {
		pid := e.Value.(vm.PID)
		if s.IsDirty(pid) {
			dirty = append(dirty, pid)
		}
	}

	return dirty
}

// View returns a copy of the state that victim selection needs. Changing the
// view does not affect the store.
func (s *Store) View() View {
	v := View{
		Members:     s.Members(),
		AccessOrder: pidsOf(s.accessOrder),
		Tracking:    make(map[vm.PID]Tracking, len(s.tracking)),
	}

	for pid, t := range s.tracking {
		v.Tracking[pid] = *t
	}

	return v
}

func (s *Store) memberMustNotExist(pid vm.PID) {
	if s.Contains(pid) {
		panic(fmt.Sprintf("%s is already a member", pid))
	}
}

func pidsOf(l *list.List) []vm.PID {
	pids := make([]vm.PID, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		pids = append(pids, e.Value.(vm.PID))
	}

	return pids
}
