package sim

import "fmt"

// HookPos names a point in an operation where hooks are called. Positions are
// compared by pointer, so each owner declares its positions once as package
// variables.
type HookPos struct {
	Name string
}

func (p *HookPos) String() string {
	if p == nil {
		return "<nil>"
	}

	return p.Name
}

// HookCtx is what a hook receives.
type HookCtx struct {
	// Domain is the object that invoked the hook.
	Domain Hookable

	// Pos tells where the hook is invoked. The type of Item depends on it.
	Pos *HookPos

	// Item is the value produced at Pos, for example an event of the
	// placement engine.
	Item any
}

// Hookable is an object that hooks can observe.
type Hookable interface {
	// AcceptHook attaches a hook. Attaching the same hook twice panics.
	AcceptHook(hook Hook)

	// RemoveHook detaches a hook. It returns false if the hook is not
	// attached.
	RemoveHook(hook Hook) bool

	// NumHooks returns the number of attached hooks.
	NumHooks() int

	// Hooks returns the attached hooks in the order they are invoked.
	Hooks() []Hook
}

// Hook is called by a Hookable at each of its hook positions.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase implements Hookable. Embed it and call InvokeHook.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns the number of attached hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the attached hooks in the order they are invoked.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// AcceptHook attaches a hook after the existing ones.
func (h *HookableBase) AcceptHook(hook Hook) {
	if h.indexOf(hook) >= 0 {
		panic(fmt.Sprintf("hook %T is already attached", hook))
	}

	h.hooks = append(h.hooks, hook)
}

// RemoveHook detaches a hook, keeping the order of the others.
func (h *HookableBase) RemoveHook(hook Hook) bool {
	i := h.indexOf(hook)
	if i < 0 {
		return false
	}

	h.hooks = append(h.hooks[:i:i], h.hooks[i+1:]...)

	return true
}

func (h *HookableBase) indexOf(hook Hook) int {
	for i, attached := range h.hooks {
		if attached == hook {
			return i
		}
	}

	return -1
}

// InvokeHook calls every attached hook with ctx, in attach order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
