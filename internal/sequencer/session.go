package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"controlling_fluidics/internal/script"
)

// SessionConfig carries the collaborators of one run.
type SessionConfig struct {
	ID     string // generated when empty
	Tick   time.Duration
	Poll   time.Duration
	Now    func() time.Time
	Driver ValveDriver
	Sink   TelemetrySink
	Logger Logger
}

// Session is the context of one script run: both queues, the Engine and the
// Processor. Nothing about a run lives outside of it.
type Session struct {
	ID        string
	control   *Queue[Signal]
	events    *Queue[Event]
	engine    *Engine
	processor *Processor

	startOnce sync.Once
	done      chan struct{}
}

// NewSession builds a session for s. Call Start to launch it.
func NewSession(s script.Script, cfg SessionConfig) *Session {
	control := NewQueue[Signal]()
	events := NewQueue[Event]()
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:      id,
		control: control,
		events:  events,
		engine: NewEngine(s, control, events, Options{
			Tick:   cfg.Tick,
			Now:    cfg.Now,
			Logger: cfg.Logger,
		}),
		processor: NewProcessor(events, cfg.Driver, cfg.Sink, cfg.Poll, cfg.Logger),
		done:      make(chan struct{}),
	}
}

// Start launches the Engine and Processor goroutines. Later calls are no-ops.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.engine.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			s.processor.Run(ctx)
			// the run is over; release the engine loop as well
			s.control.Put(SignalTerminate)
		}()
		go func() {
			wg.Wait()
			close(s.done)
		}()
	})
}

// Send queues a control signal. It never blocks.
func (s *Session) Send(sig Signal) {
	s.control.Put(sig)
}

// Snapshot returns the Engine's current view.
func (s *Session) Snapshot() Snapshot {
	return s.engine.Snapshot()
}

// Done is closed once both goroutines have exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close sends the terminate sentinel and waits for the session to end or ctx to expire.
func (s *Session) Close(ctx context.Context) error {
	s.control.Put(SignalTerminate)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
