// Package opstate tracks the lifecycle of user-triggered operations so a
// second trigger of the same operation is refused while the first is still
// waiting for its response.
package opstate

import (
	"errors"
	"sync"
)

// ErrInFlight is returned by Begin when the operation is already running.
var ErrInFlight = errors.New("operation already in progress")

// Op names a mutating operation.
type Op string

const (
	CreateListing     Op = "create_listing"
	ToggleListing     Op = "toggle_listing"
	UpdateCredentials Op = "update_credentials"
	ValidateConnect   Op = "validate_connect_account"
	CreateConnect     Op = "create_connect_account"
	Checkout          Op = "checkout"
)

type Phase int

const (
	Idle Phase = iota
	InFlight
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// State is the last known state of an operation. Reason is set only when
// Phase is Failed.
type State struct {
	Phase  Phase
	Reason string
}

// Tracker holds one State per Op. The zero value is not usable; call
// NewTracker.
type Tracker struct {
	mu     sync.Mutex
	states map[Op]State
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[Op]State)}
}

// Begin moves op to InFlight and returns the function that settles it.
// The returned finish func must be called exactly once, normally from a
// defer, with the operation's final error.
func (t *Tracker) Begin(op Op) (finish func(error), err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.states[op].Phase == InFlight {
		return nil, ErrInFlight
	}
	t.states[op] = State{Phase: InFlight}

	var once sync.Once
	return func(err error) {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if err != nil {
				t.states[op] = State{Phase: Failed, Reason: err.Error()}
				return
			}
			t.states[op] = State{Phase: Succeeded}
		})
	}, nil
}

// State returns the current state of op. Unknown ops are Idle.
func (t *Tracker) State(op Op) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[op]
}

// Busy reports whether op is in flight.
func (t *Tracker) Busy(op Op) bool {
	return t.State(op).Phase == InFlight
}
