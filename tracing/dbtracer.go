package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/hvmm/datarecording"
	"github.com/sarchlab/hvmm/mem/vm/placement"
)

// Table names written by the DBTracer.
const (
	EventTableName = "hvmm_events"
	StatsTableName = "hvmm_stats"
)

// EventEntry is a row of the event table.
type EventEntry struct {
	ID     string
	Seq    uint64
	Time   uint64
	Kind   string
	PID    string
	Detail string
}

// StatsEntry is a row of the stats table, written after every operation.
type StatsEntry struct {
	Time          uint64
	Operation     string
	PID           string
	Error         string
	RAM           int
	Swap          int
	Cache         int
	Dirty         int
	CacheHits     uint64
	CacheAccesses uint64
	RAMHits       uint64
	RAMAccesses   uint64
	PageFaults    uint64
	SwapAccesses  uint64
	TLBHits       uint64
	TLBMisses     uint64
	TotalAccesses uint64
	WriteBacks    uint64
	HitRate       string
	FaultRate     string
	Thrashing     bool
}

// DBTracer is a tracer that stores engine events and per-operation
// statistics into a database.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(EventTableName, EventEntry{})
	dataRecorder.CreateTable(StatsTableName, StatsEntry{})

	t := &DBTracer{
		backend: dataRecorder,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// RecordEvent writes one event.
func (t *DBTracer) RecordEvent(evt placement.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := EventEntry{
		ID:     evt.ID,
		Seq:    evt.Seq,
		Time:   uint64(evt.Time),
		Kind:   evt.Kind.String(),
		Detail: evt.Detail,
	}

	if evt.PID != 0 {
		entry.PID = evt.PID.String()
	}

	t.backend.InsertData(EventTableName, entry)
}

// RecordOperation writes the statistics after an operation.
func (t *DBTracer) RecordOperation(record placement.OperationRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := record.Snapshot
	c := s.Counters
	entry := StatsEntry{
		Time:          uint64(record.Time),
		Operation:     record.Operation,
		RAM:           len(s.RAM),
		Swap:          len(s.Swap),
		Cache:         len(s.Cache),
		Dirty:         len(s.Dirty),
		CacheHits:     c.CacheHits,
		CacheAccesses: c.CacheAccesses,
		RAMHits:       c.RAMHits,
		RAMAccesses:   c.RAMAccesses,
		PageFaults:    c.PageFaults,
		SwapAccesses:  c.SwapAccesses,
		TLBHits:       c.TLBHits,
		TLBMisses:     c.TLBMisses,
		TotalAccesses: c.TotalAccesses,
		WriteBacks:    c.WriteBacks,
		HitRate:       s.HitRate,
		FaultRate:     s.FaultRate,
		Thrashing:     s.Thrashing,
	}

	if record.PID != 0 {
		entry.PID = record.PID.String()
	}

	if record.Err != nil {
		entry.Error = record.Err.Error()
	}

	t.backend.InsertData(StatsTableName, entry)
}

// Terminate flushes everything buffered.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.Flush()
}
