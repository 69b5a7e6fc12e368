package domain

// State is the lifecycle state of a session.
type State string

const (
	StatePreparing State = "preparing"
	StatePending   State = "pending"
	StateScanning  State = "scanning"
	StateDone      State = "done"
	StateError     State = "error"
)

// Valid reports whether s is a known session state.
func (s State) Valid() bool {
	switch s {
	case StatePreparing, StatePending, StateScanning, StateDone, StateError:
		return true
	}
	return false
}

// Event is something that may move a session along the lifecycle.
type Event string

const (
	// EventMetadataReady fires when the worker pool has filled in genome
	// metadata for a freshly created session.
	EventMetadataReady Event = "metadata_ready"
	// EventScanQueued fires when a scan job has been accepted for a session
	// without an existing region.
	EventScanQueued Event = "scan_queued"
	// EventScanCompleted fires when the worker pool reports a region.
	EventScanCompleted Event = "scan_completed"
	// EventScanFailed fires when the worker pool reports a failure.
	EventScanFailed Event = "scan_failed"
	// EventReset fires when a client explicitly resets a finished session.
	EventReset Event = "reset"
)

// transitions is the full set of legal lifecycle edges. Anything not listed
// here is rejected; keeping it as a table keeps it exhaustively testable.
var transitions = map[State]map[Event]State{
	StatePreparing: {
		EventMetadataReady: StatePending,
	},
	StatePending: {
		EventScanQueued: StateScanning,
	},
	StateScanning: {
		EventScanCompleted: StateDone,
		EventScanFailed:    StateError,
	},
	StateDone: {
		EventReset: StatePending,
	},
}

// Next returns the state reached by applying ev in current, or a
// ForbiddenError when no such edge exists.
func Next(current State, ev Event) (State, error) {
	if next, ok := transitions[current][ev]; ok {
		return next, nil
	}
	return current, Forbiddenf("cannot apply %s in state %s", ev, current)
}

// Apply advances the session along a lifecycle edge. Derived sessions are
// read-only: every state-changing event on them is rejected.
func (s *Session) Apply(ev Event) error {
	if s.Derived {
		return Forbiddenf("session %d is derived and cannot change state", s.ID)
	}
	next, err := Next(s.State, ev)
	if err != nil {
		return err
	}
	s.State = next
	return nil
}
