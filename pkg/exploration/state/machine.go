// Package state is the authoritative lifecycle of one exploration session.
package state

import (
	"context"
	"errors"
	"fmt"

	"game-exploration-be/pkg/exploration"

	"github.com/looplab/fsm"
)

type State string

const (
	Idle           State = "idle"
	ExploreOptions State = "explore_options"
	Previewing     State = "previewing"
	Committed      State = "committed"
	Iterating      State = "iterating"
	MemoryWriting  State = "memory_writing"
	Stable         State = "stable"
)

var All = []State{Idle, ExploreOptions, Previewing, Committed, Iterating, MemoryWriting, Stable}

const (
	EventExplore       = "explore"
	EventBeginPreview  = "begin_preview"
	EventEndPreview    = "end_preview"
	EventSelect        = "select"
	EventIterate       = "iterate"
	EventFinish        = "finish"
	EventMemoryWritten = "memory_written"
	// Abort events return a session whose synthesis failed to where it came from.
	EventAbortFinishCommitted = "abort_finish_committed"
	EventAbortFinishIterating = "abort_finish_iterating"
)

func events() fsm.Events {
	return fsm.Events{
		{Name: EventExplore, Src: []string{string(Idle)}, Dst: string(ExploreOptions)},
		{Name: EventBeginPreview, Src: []string{string(ExploreOptions)}, Dst: string(Previewing)},
		{Name: EventEndPreview, Src: []string{string(Previewing)}, Dst: string(ExploreOptions)},
		{Name: EventSelect, Src: []string{string(ExploreOptions), string(Previewing)}, Dst: string(Committed)},
		{Name: EventIterate, Src: []string{string(Committed), string(Iterating)}, Dst: string(Iterating)},
		{Name: EventFinish, Src: []string{string(Committed), string(Iterating)}, Dst: string(MemoryWriting)},
		{Name: EventMemoryWritten, Src: []string{string(MemoryWriting)}, Dst: string(Stable)},
		{Name: EventAbortFinishCommitted, Src: []string{string(MemoryWriting)}, Dst: string(Committed)},
		{Name: EventAbortFinishIterating, Src: []string{string(MemoryWriting)}, Dst: string(Iterating)},
	}
}

func Valid(s string) bool {
	for _, st := range All {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Resting reports whether a session in s accepts no operation but a new explore.
func Resting(s State) bool {
	return s == Idle || s == Stable
}

type Machine struct {
	sm *fsm.FSM
}

// New restores a machine at a persisted state.
func New(current State) (*Machine, error) {
	if !Valid(string(current)) {
		return nil, fmt.Errorf("%w: unknown session state %q", exploration.ErrPrecondition, current)
	}
	return &Machine{sm: fsm.NewFSM(string(current), events(), fsm.Callbacks{})}, nil
}

func (m *Machine) Current() State {
	return State(m.sm.Current())
}

func (m *Machine) Can(event string) bool {
	return m.sm.Can(event)
}

// Fire applies event. A self-transition (iterate while iterating) is not an error.
func (m *Machine) Fire(ctx context.Context, event string) (State, error) {
	err := m.sm.Event(ctx, event)
	if err == nil {
		return m.Current(), nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return m.Current(), nil
	}
	return m.Current(), fmt.Errorf("%w: cannot %s while %s", exploration.ErrPrecondition, event, m.Current())
}

// Transition is the one-shot form of New followed by Fire.
func Transition(ctx context.Context, from State, event string) (State, error) {
	m, err := New(from)
	if err != nil {
		return from, err
	}
	return m.Fire(ctx, event)
}

// Require fails with a precondition error unless s is one of allowed.
func Require(s State, operation string, allowed ...State) error {
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not allowed while session is %s", exploration.ErrPrecondition, operation, s)
}
