package gpu

import (
	"fmt"
	"log/slog"
)

// State is a step of one GPU colorize run.
//
// A run moves through the states in declaration order, from StateIdle to
// StateDone. Any step may instead move to StateError, which is terminal.
type State int

const (
	StateIdle State = iota
	StateDeviceAcquired
	StateBuffersAllocated
	StatePass1Dispatched
	StatePass1ReadBack
	StateScanH
	StateTransposeH
	StateScanV
	StateTransposeV
	StatePass3Dispatched
	StateFinalReadBack
	StateDone
	StateError
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateDeviceAcquired:   "device-acquired",
	StateBuffersAllocated: "buffers-allocated",
	StatePass1Dispatched:  "pass1-dispatched",
	StatePass1ReadBack:    "pass1-readback",
	StateScanH:            "scan-h",
	StateTransposeH:       "transpose-h",
	StateScanV:            "scan-v",
	StateTransposeV:       "transpose-v",
	StatePass3Dispatched:  "pass3-dispatched",
	StateFinalReadBack:    "final-readback",
	StateDone:             "done",
	StateError:            "error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// next returns the successor of s on the success path.
func (s State) next() (State, bool) {
	if s < StateIdle || s >= StateDone {
		return s, false
	}
	return s + 1, true
}

// run records the state transitions of one colorize call.
type run struct {
	state   State
	history []State
	log     *slog.Logger
}

func newRun(log *slog.Logger) *run {
	return &run{state: StateIdle, history: []State{StateIdle}, log: log}
}

// advance moves to the next state. Skipping or repeating a step is a
// programming error and panics.
func (r *run) advance(to State) {
	want, ok := r.state.next()
	if !ok || to != want {
		panic(fmt.Sprintf("gpu: invalid transition %s -> %s", r.state, to))
	}
	r.state = to
	r.history = append(r.history, to)
	r.log.Debug("gpu state", "state", to)
}

// fail moves to StateError and returns err unchanged.
func (r *run) fail(err error) error {
	r.log.Debug("gpu state", "state", StateError, "from", r.state, "error", err)
	r.state = StateError
	r.history = append(r.history, StateError)
	return err
}
