package fsm

import (
	"fmt"
	"sync"
)

type State string
type Event string

// Handler is executed after a transition has been committed.
type Handler func(event Event, args ...interface{}) error

type StateMachine struct {
	mu          sync.RWMutex
	current     State
	transitions map[State]map[Event]State
	callbacks   map[State]map[Event]Handler
}

func New(initial State) *StateMachine {
	return &StateMachine{
		current:     initial,
		transitions: make(map[State]map[Event]State),
		callbacks:   make(map[State]map[Event]Handler),
	}
}

func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Is reports whether the machine is currently in state s.
func (sm *StateMachine) Is(s State) bool {
	return sm.Current() == s
}

// Can reports whether event is valid from the current state.
func (sm *StateMachine) Can(event Event) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.transitions[sm.current][event]
	return ok
}

func (sm *StateMachine) AddTransition(from, to State, event Event, callback Handler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.transitions[from]; !ok {
		sm.transitions[from] = make(map[Event]State)
		sm.callbacks[from] = make(map[Event]Handler)
	}
	sm.transitions[from][event] = to
	sm.callbacks[from][event] = callback
}

// Fire triggers a state transition. It is thread-safe.
// The check-and-set of the state happens under the lock; the callback runs
// after the lock is released, so it may query the machine or fire again.
func (sm *StateMachine) Fire(event Event, args ...interface{}) error {
	sm.mu.Lock()
	from := sm.current
	next, ok := sm.transitions[from][event]
	if !ok {
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition from %s via %s", from, event)
	}
	handler := sm.callbacks[from][event]
	sm.current = next
	sm.mu.Unlock()

	if handler != nil {
		return handler(event, args...)
	}
	return nil
}

// Personal.AI order the ending
