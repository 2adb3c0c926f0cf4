package placement

import (
	"fmt"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/sim"
)

// HookPosEvent marks the emission of an Event. The hook item is the Event.
var HookPosEvent = &sim.HookPos{Name: "Placement Event"}

// HookPosOperationDone marks the completion of a public operation. The hook
// item is an OperationRecord.
var HookPosOperationDone = &sim.HookPos{Name: "Placement Operation Done"}

// EventKind identifies what happened.
type EventKind int

// The kinds of events an Engine emits.
const (
	EventAllocated EventKind = iota
	EventEvictionStarted
	EventVictimChosen
	EventWriteBack
	EventMovedToSwap
	EventDiscarded
	EventEvicted
	EventCacheHit
	EventRAMHit
	EventPageFault
	EventLoadedIntoRAM
	EventCacheAdded
	EventCacheEvicted
	EventCacheRefreshed
	EventCacheCleared
	EventMarkedDirty
	EventAlreadyDirty
	EventTerminated
	EventProcessLost
	EventThrashingDetected
	EventThrashingResolved
	EventReset
)

var eventKindNames = map[EventKind]string{
	EventAllocated:         "Allocated",
	EventEvictionStarted:   "EvictionStarted",
	EventVictimChosen:      "VictimChosen",
	EventWriteBack:         "WriteBack",
	EventMovedToSwap:       "MovedToSwap",
	EventDiscarded:         "Discarded",
	EventEvicted:           "Evicted",
	EventCacheHit:          "CacheHit",
	EventRAMHit:            "RAMHit",
	EventPageFault:         "PageFault",
	EventLoadedIntoRAM:     "LoadedIntoRAM",
	EventCacheAdded:        "CacheAdded",
	EventCacheEvicted:      "CacheEvicted",
	EventCacheRefreshed:    "CacheRefreshed",
	EventCacheCleared:      "CacheCleared",
	EventMarkedDirty:       "MarkedDirty",
	EventAlreadyDirty:      "AlreadyDirty",
	EventTerminated:        "Terminated",
	EventProcessLost:       "ProcessLost",
	EventThrashingDetected: "ThrashingDetected",
	EventThrashingResolved: "ThrashingResolved",
	EventReset:             "Reset",
}

func (k EventKind) String() string {
	name, ok := eventKindNames[k]
	if !ok {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}

	return name
}

// MarshalText renders the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// An Event is one observable step of an operation. PID is 0 for events that do
// not concern a single process.
type Event struct {
	ID     string    `json:"id"`
	Seq    uint64    `json:"seq"`
	Time   sim.VTime `json:"time"`
	Kind   EventKind `json:"kind"`
	PID    vm.PID    `json:"pid,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func (e Event) String() string {
	s := fmt.Sprintf("[%d] %s", e.Time, e.Kind)

	if e.PID != 0 {
		s += " " + e.PID.String()
	}

	if e.Detail != "" {
		s += ": " + e.Detail
	}

	return s
}

// An OperationRecord summarizes a completed public operation.
type OperationRecord struct {
	Operation string
	PID       vm.PID
	Time      sim.VTime
	Err       error
	Snapshot  Snapshot
}
