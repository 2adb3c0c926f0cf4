package tracing

import (
	"sync"

	"github.com/sarchlab/hvmm/mem/vm/placement"
)

// CountTracer counts the events by kind and the operations by name.
type CountTracer struct {
	lock       sync.Mutex
	kinds      []placement.EventKind
	eventCount map[placement.EventKind]uint64
	opCount    map[string]uint64
	failCount  map[string]uint64
}

// NewCountTracer creates a new CountTracer
func NewCountTracer() *CountTracer {
	return &CountTracer{
		eventCount: make(map[placement.EventKind]uint64),
		opCount:    make(map[string]uint64),
		failCount:  make(map[string]uint64),
	}
}

// RecordEvent counts the event.
func (t *CountTracer) RecordEvent(evt placement.Event) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.eventCount[evt.Kind]; !ok {
		t.kinds = append(t.kinds, evt.Kind)
	}

	t.eventCount[evt.Kind]++
}

// RecordOperation counts the operation, and its failure if any.
func (t *CountTracer) RecordOperation(record placement.OperationRecord) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.opCount[record.Operation]++

	if record.Err != nil {
		t.failCount[record.Operation]++
	}
}

// Kinds returns the event kinds seen, in the order first seen.
func (t *CountTracer) Kinds() []placement.EventKind {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]placement.EventKind(nil), t.kinds...)
}

// EventCount returns how many events of the kind were seen.
func (t *CountTracer) EventCount(kind placement.EventKind) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.eventCount[kind]
}

// OperationCount returns how many times the operation ran and how many of
// those runs failed.
func (t *CountTracer) OperationCount(op string) (total, failed uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.opCount[op], t.failCount[op]
}
