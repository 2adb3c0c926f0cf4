// Package tracing observes placement engines through hooks.
package tracing

import (
	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
}

// A Tracer receives everything an engine emits.
type Tracer interface {
	RecordEvent(evt placement.Event)
	RecordOperation(record placement.OperationRecord)
}
