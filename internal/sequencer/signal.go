package sequencer

import "fmt"

// Signal is a control command sent to the Engine.
type Signal string

// Control queue literals. Terminate is the sentinel that ends the Engine loop.
const (
	SignalStartPause Signal = "start-pause"
	SignalSkip       Signal = "skip"
	SignalStop       Signal = "stop"
	SignalTerminate  Signal = "\x00terminate"
)

// ParseSignal maps an external command name onto a Signal.
// The terminate sentinel cannot be produced from text.
func ParseSignal(s string) (Signal, error) {
	switch sig := Signal(s); sig {
	case SignalStartPause, SignalSkip, SignalStop:
		return sig, nil
	default:
		return "", &SignalError{Signal: sig}
	}
}

// SignalError reports a control signal the Engine does not understand.
type SignalError struct {
	Signal Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("unrecognized control signal %q", string(e.Signal))
}
