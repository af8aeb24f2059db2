package statemachine

import (
	"fmt"
	"strings"

	"laundry-api/models"
)

// Policy names a transition table
type Policy string

const (
	// Sequential only allows the next lifecycle step, plus cancellation
	// from any non-terminal state.
	Sequential Policy = "sequential"
	// Permissive allows any jump between recognized states as long as the
	// order has not reached a terminal state.
	Permissive Policy = "permissive"
)

// Transition defines a valid state change
type Transition struct {
	From models.OrderStatus `json:"from"`
	To   models.OrderStatus `json:"to"`
}

// sequentialTransitions is the authoritative forward-only lifecycle
var sequentialTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusAccepted},
	{From: models.StatusPending, To: models.StatusCancelled},
	{From: models.StatusAccepted, To: models.StatusInProgress},
	{From: models.StatusAccepted, To: models.StatusCancelled},
	{From: models.StatusInProgress, To: models.StatusReady},
	{From: models.StatusInProgress, To: models.StatusCancelled},
	{From: models.StatusReady, To: models.StatusDelivered},
	{From: models.StatusReady, To: models.StatusCancelled},
}

var permissiveTransitions = func() []Transition {
	var ts []Transition
	for _, from := range models.AllStatuses {
		if from.Terminal() {
			continue
		}
		for _, to := range models.AllStatuses {
			if from != to {
				ts = append(ts, Transition{From: from, To: to})
			}
		}
	}
	return ts
}()

// Machine validates status changes against one transition table
type Machine struct {
	policy      Policy
	transitions []Transition
	lookup      map[Transition]bool
}

// ParsePolicy resolves a configured policy name
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case Sequential, Permissive:
		return p, nil
	case "":
		return Sequential, nil
	}
	return "", fmt.Errorf("unknown transition policy %q", name)
}

// New builds a Machine for the given policy. Unknown policies fall back
// to Sequential.
func New(policy Policy) *Machine {
	ts := sequentialTransitions
	if policy == Permissive {
		ts = permissiveTransitions
	} else {
		policy = Sequential
	}
	m := &Machine{policy: policy, transitions: ts, lookup: make(map[Transition]bool, len(ts))}
	for _, t := range ts {
		m.lookup[t] = true
	}
	return m
}

func (m *Machine) Policy() Policy {
	return m.policy
}

// ValidTransitionsFrom returns all valid next states from a given state
func (m *Machine) ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range m.transitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks if an order may move from one state to another
func (m *Machine) CanTransition(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", to)
	}
	if m.lookup[Transition{From: from, To: to}] {
		return nil
	}
	return fmt.Errorf("%s → %s is not allowed; valid transitions from %s are: %s",
		from, to, from, describeValidFrom(m.ValidTransitionsFrom(from)))
}

func describeValidFrom(nexts []models.OrderStatus) string {
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Transitions returns the full table for documentation
func (m *Machine) Transitions() []Transition {
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}
