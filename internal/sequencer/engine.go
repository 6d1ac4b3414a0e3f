package sequencer

import (
	"context"
	"sync"
	"time"

	"controlling_fluidics/internal/script"
)

// State is the Engine's execution state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// DefaultTick is the Engine polling interval.
const DefaultTick = 10 * time.Millisecond

// Options tune an Engine. Zero values select defaults.
type Options struct {
	Tick   time.Duration
	Now    func() time.Time
	Logger Logger
}

// Snapshot is a consistent view of the Engine for controllers and UIs.
type Snapshot struct {
	State                State  `json:"state"`
	StepsLeft            int    `json:"steps_left"`
	CurrentStep          string `json:"current_step,omitempty"`
	ExpectedSeconds      int    `json:"expected_seconds"`
	AccumulatedSeconds   int    `json:"accumulated_seconds"`
	StepRemainingSeconds int    `json:"step_remaining_seconds"`
}

// Engine walks a Script over time. It reads control signals from one queue and
// writes events to another; it shares no other state with its consumers.
type Engine struct {
	control *Queue[Signal]
	events  *Queue[Event]
	log     Logger
	tick    time.Duration

	mu          sync.Mutex
	clock       *StepClock
	state       State
	ops         []script.Operation
	expected    int
	accumulated int
	dispatched  bool          // head operation has been executed
	held        time.Duration // step time left when paused
	finished    bool          // terminate event already sent for this run
	lastStep    int
	lastRun     int
}

// NewEngine creates an Engine that owns a private copy of s.
func NewEngine(s script.Script, control *Queue[Signal], events *Queue[Event], opts Options) *Engine {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	c := s.Clone()
	return &Engine{
		control:  control,
		events:   events,
		log:      orNop(opts.Logger),
		tick:     opts.Tick,
		clock:    NewStepClock(opts.Now),
		state:    StateIdle,
		ops:      c.Operations,
		expected: c.ExpectedSeconds,
		lastStep: -1,
		lastRun:  -1,
	}
}

// Run drives the Engine until a terminate signal arrives or ctx is done.
// It wakes on every tick and as soon as a control signal is queued.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		if e.step() {
			return
		}
		if e.control.Len() > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.terminate()
			e.mu.Unlock()
			return
		case <-e.control.Ready():
		case <-ticker.C:
		}
	}
}

// Snapshot returns the current Engine view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:              e.state,
		StepsLeft:          len(e.ops),
		ExpectedSeconds:    e.expected,
		AccumulatedSeconds: e.accumulated,
	}
	if len(e.ops) > 0 {
		snap.CurrentStep = e.ops[0].String()
	}
	switch {
	case e.state == StatePaused && e.clock.Armed():
		snap.StepRemainingSeconds = ceilSeconds(e.held)
	case e.clock.Armed():
		snap.StepRemainingSeconds = ceilSeconds(e.clock.Remaining())
	}
	return snap
}

// step performs one tick and reports whether the loop must exit.
func (e *Engine) step() (done bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("engine_tick_panic", "panic", r, "state", e.state)
			done = false
		}
	}()

	sig, ok := e.control.TryGet()
	if ok && sig == SignalTerminate {
		e.terminate()
		return true
	}
	if ok && !knownSignal(sig) {
		e.log.Warnw("engine_signal_unknown", "err", &SignalError{Signal: sig})
		sig, ok = "", false
	}
	if ok {
		e.log.Debugw("engine_signal", "signal", sig, "state", e.state)
	}

	switch e.state {
	case StateIdle:
		e.onIdle(sig)
	case StateRunning:
		e.onRunning(sig)
	case StatePaused:
		e.onPaused(sig)
	}
	return false
}

func (e *Engine) onIdle(sig Signal) {
	if len(e.ops) == 0 {
		e.finish()
		return
	}
	if sig == SignalStartPause {
		e.setState(StateRunning)
		e.emit(Event{Kind: EventExpected, Value: e.expected})
	}
}

func (e *Engine) onRunning(sig Signal) {
	switch sig {
	case SignalStartPause:
		e.held = e.clock.PauseCapture()
		e.setState(StatePaused)
	case SignalSkip:
		e.advance()
		if len(e.ops) == 0 {
			e.reset()
		}
	case SignalStop:
		e.reset()
	default:
		e.proceed()
	}
}

func (e *Engine) onPaused(sig Signal) {
	switch sig {
	case SignalStartPause:
		if _, ok := e.ops[0].(script.Pause); ok && e.dispatched {
			// resuming past a pause marker from the script
			e.advance()
			if len(e.ops) == 0 {
				e.reset()
				return
			}
		} else {
			e.clock.Resume(e.held)
		}
		e.held = 0
		e.setState(StateRunning)
	case SignalSkip:
		e.advance()
		if len(e.ops) == 0 {
			e.reset()
		}
	case SignalStop:
		e.reset()
	}
}

// proceed is the Running tick without a control signal.
func (e *Engine) proceed() {
	if _, ok := e.ops[0].(script.Wait); ok && e.dispatched {
		if e.clock.Remaining() <= 0 {
			e.advance()
			if len(e.ops) == 0 {
				e.reset()
			}
			return
		}
		e.reportProgress()
		return
	}
	if !e.dispatched {
		e.execute()
	}
}

// execute performs the head operation on its first visit.
func (e *Engine) execute() {
	e.dispatched = true

	switch op := e.ops[0].(type) {
	case script.Open:
		e.emit(openEvent(op.Valve))
		e.advance()
	case script.Close:
		e.emit(closeEvent(op.Valve))
		e.advance()
	case script.Pump:
		e.emit(Event{Kind: EventPump, Value: op.Hz})
		e.advance()
	case script.Wait:
		e.clock.Start(time.Duration(op.Seconds) * time.Second)
		e.lastStep, e.lastRun = -1, -1
		e.emit(Event{Kind: EventStepStarted, Value: op.Seconds})
		e.reportProgress()
	case script.Pause:
		e.held = 0
		e.emit(Event{Kind: EventPause})
		e.setState(StatePaused)
	}

	if len(e.ops) == 0 {
		e.reset()
	}
}

// advance pops the head operation. A Wait is credited with its nominal
// duration whether it completed or was skipped.
func (e *Engine) advance() {
	head := e.ops[0]
	e.ops[0] = nil
	e.ops = e.ops[1:]
	e.dispatched = false

	if w, ok := head.(script.Wait); ok {
		e.clock.Reset()
		e.held = 0
		e.accumulated += w.Seconds
		e.emit(stepProgress(0, w.Seconds))
		e.emit(runProgress(max(e.expected-e.accumulated, 0), e.accumulated))
		e.lastStep, e.lastRun = -1, -1
	}
}

// reportProgress emits timing telemetry when the whole-second value changed.
func (e *Engine) reportProgress() {
	if !e.clock.Armed() {
		return
	}
	total := int(e.clock.Total() / time.Second)
	remaining := ceilSeconds(e.clock.Remaining())
	if remaining == e.lastStep {
		return
	}
	e.lastStep = remaining
	elapsed := total - remaining
	e.emit(stepProgress(remaining, elapsed))

	runElapsed := e.accumulated + elapsed
	if runElapsed != e.lastRun {
		e.lastRun = runElapsed
		e.emit(runProgress(max(e.expected-runElapsed, 0), runElapsed))
	}
}

// reset clears the run and returns to Idle.
func (e *Engine) reset() {
	for i := range e.ops {
		e.ops[i] = nil
	}
	e.ops = nil
	e.clock.Reset()
	e.accumulated = 0
	e.expected = 0
	e.dispatched = false
	e.held = 0
	e.lastStep, e.lastRun = -1, -1
	e.setState(StateIdle)
	e.finish()
}

// finish tells the consumer that the run is over. Sent once per run.
func (e *Engine) finish() {
	if e.finished {
		return
	}
	e.finished = true
	e.emit(Event{Kind: EventTerminated})
}

func (e *Engine) terminate() {
	e.log.Infow("engine_terminated", "state", e.state, "steps_left", len(e.ops))
	e.finish()
}

func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	e.log.Debugw("engine_state", "from", e.state, "to", s)
	e.state = s
	e.emit(stateEvent(s))
}

func (e *Engine) emit(ev Event) {
	e.events.Put(ev)
}

func knownSignal(s Signal) bool {
	switch s {
	case SignalStartPause, SignalSkip, SignalStop:
		return true
	}
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
