package oob

import (
	"errors"
	"fmt"
)

// State of the invitation. The zero value is unset.
type State string

const (
	StateUnset   State = ""
	StateInitial State = "initial"
	StateReceive State = "receive"
	StateDone    State = "done"
)

var ErrTransition = errors.New("invalid state transition")

var transitions = map[State]State{
	StateInitial: StateReceive,
	StateReceive: StateDone,
}

func (s State) String() string {
	if s == StateUnset {
		return "unset"
	}
	return string(s)
}

// CanMove tells if the transition from s to next is allowed. Unset may only
// go to initial, re-assigning the same state is always allowed.
func (s State) CanMove(next State) bool {
	if s == StateUnset {
		return next == StateInitial
	}
	return s == next || transitions[s] == next
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s => %s", ErrTransition, from, to)
}
