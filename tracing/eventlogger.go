package tracing

import (
	"fmt"
	"log"
	"strings"

	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/sim"
)

// Level selects how much an EventLogger prints.
type Level int

// The log levels.
const (
	LevelQuiet Level = iota
	LevelInfo
	LevelDebug
)

// ParseLevel converts quiet, info or debug into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return LevelQuiet, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelQuiet, fmt.Errorf("unknown log level %q", s)
	}
}

var debugKinds = map[placement.EventKind]bool{
	placement.EventEvictionStarted: true,
	placement.EventVictimChosen:    true,
	placement.EventCacheRefreshed:  true,
	placement.EventEvicted:         true,
}

// EventLogger is a hook that prints engine events.
type EventLogger struct {
	*log.Logger

	level Level
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *log.Logger, level Level) *EventLogger {
	return &EventLogger{Logger: logger, level: level}
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx sim.HookCtx) {
	if h.level == LevelQuiet {
		return
	}

	switch ctx.Pos {
	case placement.HookPosEvent:
		evt, ok := ctx.Item.(placement.Event)
		if !ok {
			return
		}

		if debugKinds[evt.Kind] && h.level < LevelDebug {
			return
		}

		h.Printf("%s", evt)
	case placement.HookPosOperationDone:
		record, ok := ctx.Item.(placement.OperationRecord)
		if !ok || record.Err == nil {
			return
		}

		h.Printf("[%d] %s failed: %v", record.Time, record.Operation, record.Err)
	}
}
