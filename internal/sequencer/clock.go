package sequencer

import "time"

// StepClock times the in-progress Wait step. It survives pauses by capturing
// the remaining time and recomputing the deadline on resume.
type StepClock struct {
	now      func() time.Time
	total    time.Duration
	deadline time.Time
	armed    bool
}

// NewStepClock returns a clock reading time from now (time.Now when nil).
func NewStepClock(now func() time.Time) *StepClock {
	if now == nil {
		now = time.Now
	}
	return &StepClock{now: now}
}

// Start arms the clock for a step of duration d.
func (c *StepClock) Start(d time.Duration) {
	c.total = d
	c.deadline = c.now().Add(d)
	c.armed = true
}

// Armed reports whether a step is being timed.
func (c *StepClock) Armed() bool { return c.armed }

// Total is the nominal duration of the current step.
func (c *StepClock) Total() time.Duration { return c.total }

// Remaining returns the time left until the deadline, never negative.
func (c *StepClock) Remaining() time.Duration {
	if !c.armed {
		return 0
	}
	if r := c.deadline.Sub(c.now()); r > 0 {
		return r
	}
	return 0
}

// Elapsed returns how much of the current step has run.
func (c *StepClock) Elapsed() time.Duration {
	if !c.armed {
		return 0
	}
	return c.total - c.Remaining()
}

// PauseCapture returns the remaining time so it can be restored by Resume.
func (c *StepClock) PauseCapture() time.Duration {
	return c.Remaining()
}

// Resume moves the deadline so that remaining time is left from now.
func (c *StepClock) Resume(remaining time.Duration) {
	if !c.armed {
		return
	}
	c.deadline = c.now().Add(remaining)
}

// Reset clears the step timing.
func (c *StepClock) Reset() {
	c.total = 0
	c.deadline = time.Time{}
	c.armed = false
}
