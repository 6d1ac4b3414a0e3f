package script

import "fmt"

// Operation is one parsed script step. The set of implementations is closed:
// Open, Close, Wait, Pump and Pause.
type Operation interface {
	fmt.Stringer
	operation()
}

// Open requests a valve to be opened.
type Open struct {
	Valve string
}

// Close requests a valve to be closed.
type Close struct {
	Valve string
}

// Wait holds the current valve configuration for Seconds.
type Wait struct {
	Seconds int
}

// Pump carries a pumping frequency. It is passed through to consumers as-is.
type Pump struct {
	Hz int
}

// Pause halts the run until the operator resumes it.
type Pause struct{}

func (Open) operation()  {}
func (Close) operation() {}
func (Wait) operation()  {}
func (Pump) operation()  {}
func (Pause) operation() {}

func (o Open) String() string  { return "open " + o.Valve }
func (o Close) String() string { return "close " + o.Valve }
func (o Wait) String() string  { return fmt.Sprintf("wait %d s", o.Seconds) }
func (o Pump) String() string  { return fmt.Sprintf("pump %d hz", o.Hz) }
func (Pause) String() string   { return "pause" }

// Script is an ordered list of operations together with the sum of all Wait durations.
type Script struct {
	Operations      []Operation `json:"-"`
	ExpectedSeconds int         `json:"expected_seconds"`
}

// Len returns the number of operations left in the script.
func (s Script) Len() int { return len(s.Operations) }

// Steps renders every operation in its canonical text form.
func (s Script) Steps() []string {
	out := make([]string, 0, len(s.Operations))
	for _, op := range s.Operations {
		out = append(out, op.String())
	}
	return out
}

// Clone returns a copy whose operation slice can be consumed independently.
func (s Script) Clone() Script {
	ops := make([]Operation, len(s.Operations))
	copy(ops, s.Operations)
	return Script{Operations: ops, ExpectedSeconds: s.ExpectedSeconds}
}
