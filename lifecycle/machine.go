// Package lifecycle drives a deal through its closing states. Transitions
// are forward-only and gated on the latest dashboard snapshot and the
// closing conditions; violations come back as *TransitionBlocked.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"dealgate/deal"
	"dealgate/engine"
)

type State string

const (
	StateDraft       State = "DRAFT"
	StateReview      State = "REVIEW"
	StateNegotiation State = "NEGOTIATION"
	StatePreClosing  State = "PRE_CLOSING"
	StateClosing     State = "CLOSING"
	StateClosed      State = "CLOSED"
	StateTerminated  State = "TERMINATED"
)

var (
	ErrUnknownState = errors.New("lifecycle: unknown state")
	ErrTerminal     = errors.New("lifecycle: deal is in a terminal state")
)

// forwardOrder positions each non-terminal-target state on the one-way track.
var forwardOrder = map[State]int{
	StateDraft:       0,
	StateReview:      1,
	StateNegotiation: 2,
	StatePreClosing:  3,
	StateClosing:     4,
	StateClosed:      5,
}

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateTerminated
}

func (s State) valid() bool {
	_, ok := forwardOrder[s]
	return ok || s == StateTerminated
}

// TransitionBlocked is returned when a transition is well-formed but its
// gate preconditions do not hold. It lists every unmet precondition so the
// caller can present all of them at once.
type TransitionBlocked struct {
	From  State
	To    State
	Unmet []string
}

func (e *TransitionBlocked) Error() string {
	return fmt.Sprintf("lifecycle: transition %s -> %s blocked: %s", e.From, e.To, strings.Join(e.Unmet, "; "))
}

// GateInputs carries the evidence a gated transition is checked against.
// The dashboard must come from a stored snapshot, not a live computation.
type GateInputs struct {
	Dashboard  *engine.Dashboard
	Conditions []deal.Condition
}

// Machine tracks one deal's state in memory. All transitions serialize on
// an internal mutex; the persistent Service serializes on row locks instead
// and uses the stateless validate helper directly.
type Machine struct {
	mu    sync.Mutex
	state State
}

func NewMachine(initial State) (*Machine, error) {
	if !initial.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, initial)
	}
	return &Machine{state: initial}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequestTransition moves the machine to target if the transition is legal
// and its preconditions hold. On *TransitionBlocked the state is unchanged.
func (m *Machine) RequestTransition(target State, in GateInputs) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validate(m.state, target, in); err != nil {
		return err
	}
	m.state = target
	return nil
}

// validate checks shape first (forward-only, terminal states), then gates.
// Shape violations are plain errors; gate violations are *TransitionBlocked.
func validate(current, target State, in GateInputs) error {
	if !target.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownState, target)
	}
	if current.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, current)
	}
	if target == StateTerminated {
		return nil
	}
	from, to := forwardOrder[current], forwardOrder[target]
	if to != from+1 {
		return fmt.Errorf("lifecycle: invalid transition %s -> %s", current, target)
	}

	var unmet []string
	switch target {
	case StatePreClosing:
		switch {
		case in.Dashboard == nil:
			unmet = append(unmet, "no dashboard snapshot recorded")
		case !in.Dashboard.Composite.AtLeast(engine.StatusAmber):
			unmet = append(unmet, fmt.Sprintf("dashboard composite is %s, needs AMBER or better", in.Dashboard.Composite))
		}
	case StateClosing:
		for _, c := range in.Conditions {
			if c.Status == deal.ConditionOpen {
				unmet = append(unmet, fmt.Sprintf("condition %s is OPEN", c.ID))
			}
		}
	}
	if len(unmet) > 0 {
		return &TransitionBlocked{From: current, To: target, Unmet: unmet}
	}
	return nil
}
