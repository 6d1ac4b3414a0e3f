package sequencer

// EventKind tags an Event. The values are the event queue literals.
type EventKind string

const (
	EventOpen         EventKind = "open"
	EventClose        EventKind = "close"
	EventPause        EventKind = "pause"
	EventPump         EventKind = "pump"
	EventState        EventKind = "state"
	EventExpected     EventKind = "t_e"
	EventStepStarted  EventKind = "t_n"
	EventStepProgress EventKind = "t_r"
	EventRunProgress  EventKind = "t_a"
	EventTerminated   EventKind = "terminate"
)

// Event is a message from the Engine to the Processor.
//
// Field usage by kind:
//   - open, close: Valve
//   - pump: Value (frequency in hz)
//   - state: State
//   - t_e, t_n: Value (seconds)
//   - t_r, t_a: Value (remaining seconds), Elapsed (elapsed seconds)
type Event struct {
	Kind    EventKind `json:"kind"`
	Valve   string    `json:"valve,omitempty"`
	State   State     `json:"state,omitempty"`
	Value   int       `json:"value"`
	Elapsed int       `json:"elapsed"`
}

// Tuple renders the event in its queue literal form, e.g. (t_r, 12, 48).
func (e Event) Tuple() []any {
	switch e.Kind {
	case EventOpen, EventClose:
		return []any{string(e.Kind), e.Valve}
	case EventState:
		return []any{string(e.Kind), string(e.State)}
	case EventPump, EventExpected, EventStepStarted:
		return []any{string(e.Kind), e.Value}
	case EventStepProgress, EventRunProgress:
		return []any{string(e.Kind), e.Value, e.Elapsed}
	default:
		return []any{string(e.Kind)}
	}
}

// IsProgress reports whether the event is periodic timing telemetry.
func (e Event) IsProgress() bool {
	return e.Kind == EventStepProgress || e.Kind == EventRunProgress
}

func openEvent(valve string) Event  { return Event{Kind: EventOpen, Valve: valve} }
func closeEvent(valve string) Event { return Event{Kind: EventClose, Valve: valve} }
func stateEvent(s State) Event      { return Event{Kind: EventState, State: s} }

func stepProgress(remaining, elapsed int) Event {
	return Event{Kind: EventStepProgress, Value: remaining, Elapsed: elapsed}
}

func runProgress(remaining, elapsed int) Event {
	return Event{Kind: EventRunProgress, Value: remaining, Elapsed: elapsed}
}
