package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/sim"
)

// CollectTrace let the tracer to collect trace from a domain
func CollectTrace(domain NamedHookable, tracer Tracer) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// StopTrace detaches the tracer from the domain. It returns false if the
// tracer was not collecting from the domain.
func StopTrace(domain NamedHookable, tracer Tracer) bool {
	for _, hook := range domain.Hooks() {
		h, ok := hook.(*traceHook)
		if ok && h.t == tracer {
			return domain.RemoveHook(h)
		}
	}

	return false
}

// A traceHook is a hook that forwards engine output to a tracer
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case placement.HookPosEvent:
		h.t.RecordEvent(ctx.Item.(placement.Event))
	case placement.HookPosOperationDone:
		h.t.RecordOperation(ctx.Item.(placement.OperationRecord))
	}
}
