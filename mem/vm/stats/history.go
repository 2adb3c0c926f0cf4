package stats

// Outcome is the result of an access as seen by the thrashing detector.
type Outcome int

// The recorded outcomes.
const (
	Hit Outcome = iota
	Fault
)

func (o Outcome) String() string {
	if o == Fault {
		return "fault"
	}

	return "hit"
}

// A History is a fixed-size window of the most recent outcomes. Pushing into a
// full history drops the oldest outcome.
type History struct {
	size     int
	outcomes []Outcome
}

// NewHistory creates an empty history holding at most size outcomes.
func NewHistory(size int) *History {
	if size < 1 {
		panic("history size must be positive")
	}

	return &History{size: size}
}

// Size returns the window size.
func (h *History) Size() int {
	return h.size
}

// Len returns the number of outcomes currently held.
func (h *History) Len() int {
	return len(h.outcomes)
}

// Push appends an outcome.
func (h *History) Push(o Outcome) {
	h.outcomes = append(h.outcomes, o)
	if len(h.outcomes) > h.size {
		h.outcomes = h.outcomes[1:]
	}
}

// Faults counts the fault outcomes in the window.
func (h *History) Faults() int {
	n := 0
	for _, o := range h.outcomes {
		if o == Fault {
			n++
		}
	}

	return n
}

// Outcomes returns the window from oldest to newest.
func (h *History) Outcomes() []Outcome {
	return append([]Outcome(nil), h.outcomes...)
}

// Clear empties the window.
func (h *History) Clear() {
	h.outcomes = nil
}
