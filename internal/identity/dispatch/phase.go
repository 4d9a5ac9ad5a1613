package dispatch

import "fmt"

// Phase is a step of one dispatch.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDiscovering
	PhaseQuerying
	PhaseScored
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDiscovering:
		return "discovering"
	case PhaseQuerying:
		return "querying"
	case PhaseScored:
		return "scored"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is allowed.
func (p Phase) Terminal() bool {
	return p == PhaseScored || p == PhaseFailed
}

var transitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseDiscovering, PhaseQuerying, PhaseFailed},
	PhaseDiscovering: {PhaseQuerying, PhaseFailed},
	PhaseQuerying:    {PhaseScored, PhaseFailed},
}

// CanTransition reports whether from -> to is a legal step. Idle may go
// straight to Querying when the index is already known.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// tracker records the phases one dispatch passes through.
type tracker struct {
	current Phase
	history []Phase
}

func newTracker() *tracker {
	return &tracker{current: PhaseIdle, history: []Phase{PhaseIdle}}
}

func (t *tracker) to(next Phase) error {
	if !CanTransition(t.current, next) {
		return fmt.Errorf("illegal dispatch transition %s -> %s", t.current, next)
	}
	t.current = next
	t.history = append(t.history, next)
	return nil
}
