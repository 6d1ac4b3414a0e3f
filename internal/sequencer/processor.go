package sequencer

import (
	"context"
	"time"
)

// DefaultPollInterval bounds how long the Processor sleeps on an empty queue.
const DefaultPollInterval = 50 * time.Millisecond

// ValveDriver actuates valves. Calls are synchronous; a failure is reported
// once and never retried.
type ValveDriver interface {
	Open(valve string) error
	Close(valve string) error
}

// TelemetrySink receives every event the Processor handles. Publish must not block.
type TelemetrySink interface {
	Publish(ev Event)
}

// Processor drains the event queue and dispatches valve commands and telemetry.
type Processor struct {
	events *Queue[Event]
	driver ValveDriver
	sink   TelemetrySink
	log    Logger
	poll   time.Duration
}

// NewProcessor wires a Processor. driver and sink may be nil.
func NewProcessor(events *Queue[Event], driver ValveDriver, sink TelemetrySink, poll time.Duration, log Logger) *Processor {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Processor{
		events: events,
		driver: driver,
		sink:   sink,
		log:    orNop(log),
		poll:   poll,
	}
}

// Run handles events until the terminate event has been forwarded.
// ctx cancellation only shortens the wait between polls; the loop still ends
// on the terminate event.
func (p *Processor) Run(ctx context.Context) {
	timer := time.NewTimer(p.poll)
	defer timer.Stop()

	for {
		for {
			ev, ok := p.events.TryGet()
			if !ok {
				break
			}
			if p.handle(ev) {
				return
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.poll)

		select {
		case <-p.events.Ready():
		case <-timer.C:
		case <-ctx.Done():
			// the engine emits terminate on cancellation; keep draining until it arrives
			ctx = context.Background()
		}
	}
}

// handle processes one event and reports whether the loop must stop.
func (p *Processor) handle(ev Event) bool {
	switch ev.Kind {
	case EventOpen:
		p.dispatch(ev, p.openValve)
	case EventClose:
		p.dispatch(ev, p.closeValve)
	case EventPump:
		p.log.Infow("pump_passthrough", "hz", ev.Value)
	case EventTerminated:
		p.publish(ev)
		p.log.Infow("processor_stopped")
		return true
	}
	p.publish(ev)
	return false
}

func (p *Processor) dispatch(ev Event, actuate func(string) error) {
	if err := actuate(ev.Valve); err != nil {
		p.log.Errorw("valve_dispatch_failed", "err", err, "valve", ev.Valve, "kind", ev.Kind)
	}
}

func (p *Processor) openValve(valve string) error {
	if p.driver == nil {
		return nil
	}
	return p.driver.Open(valve)
}

func (p *Processor) closeValve(valve string) error {
	if p.driver == nil {
		return nil
	}
	return p.driver.Close(valve)
}

func (p *Processor) publish(ev Event) {
	if p.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("telemetry_sink_panic", "panic", r, "kind", ev.Kind)
		}
	}()
	p.sink.Publish(ev)
}
