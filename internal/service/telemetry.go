package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/repository"
	"controlling_fluidics/internal/sequencer"
	"controlling_fluidics/internal/valves"
)

const telemetryBuffer = 1024

// Progress is the latest timing telemetry of a run, in whole seconds.
type Progress struct {
	Expected      int
	StepRemaining int
	StepElapsed   int
	RunRemaining  int
	RunElapsed    int
	Finished      bool
}

// TelemetryMessage is the JSON mirrored to the telemetry MQTT topic.
type TelemetryMessage struct {
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Tuple      []any     `json:"tuple"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MetricsWriter receives every run event, progress included, for time-series storage.
type MetricsWriter interface {
	WriteRunEvent(sessionID string, ev sequencer.Event, at time.Time)
}

type telemetryRecord struct {
	session string
	event   sequencer.Event
	at      time.Time
}

// TelemetryService receives run events from session processors. Publish only
// updates in-memory progress and queues the event; Run persists non-progress
// events and mirrors everything to MQTT when a publisher is configured.
type TelemetryService struct {
	eventRepo repository.EventRepo
	pub       valves.Publisher
	topic     string
	metrics   MetricsWriter
	log       *logger.Logger
	now       func() time.Time

	queue   chan telemetryRecord
	dropped atomic.Int64

	mu       sync.RWMutex
	progress map[string]Progress
}

// NewTelemetryService builds the sink. pub may be nil or topic empty to
// disable the MQTT mirror.
func NewTelemetryService(eventRepo repository.EventRepo, pub valves.Publisher, topic string, log *logger.Logger) *TelemetryService {
	if topic == "" {
		pub = nil
	}
	return &TelemetryService{
		eventRepo: eventRepo,
		pub:       pub,
		topic:     topic,
		log:       log.Named("telemetry"),
		now:       time.Now,
		queue:     make(chan telemetryRecord, telemetryBuffer),
		progress:  make(map[string]Progress),
	}
}

// SetMetrics attaches a time-series writer. Call before Run.
func (t *TelemetryService) SetMetrics(m MetricsWriter) {
	t.metrics = m
}

// Sink returns the sequencer.TelemetrySink for one session.
func (t *TelemetryService) Sink(sessionID string) sequencer.TelemetrySink {
	return sessionSink{t: t, id: sessionID}
}

type sessionSink struct {
	t  *TelemetryService
	id string
}

func (s sessionSink) Publish(ev sequencer.Event) { s.t.publish(s.id, ev) }

func (t *TelemetryService) publish(session string, ev sequencer.Event) {
	t.track(session, ev)

	select {
	case t.queue <- telemetryRecord{session: session, event: ev, at: t.now().UTC()}:
	default:
		if n := t.dropped.Add(1); n == 1 || n%100 == 0 {
			t.log.Warnw("telemetry_dropped", "session_id", session, "kind", ev.Kind, "dropped_total", n)
		}
	}
}

func (t *TelemetryService) track(session string, ev sequencer.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.progress[session]
	switch ev.Kind {
	case sequencer.EventExpected:
		p.Expected = ev.Value
		p.RunRemaining = ev.Value
	case sequencer.EventStepStarted:
		p.StepRemaining, p.StepElapsed = ev.Value, 0
	case sequencer.EventStepProgress:
		p.StepRemaining, p.StepElapsed = ev.Value, ev.Elapsed
	case sequencer.EventRunProgress:
		p.RunRemaining, p.RunElapsed = ev.Value, ev.Elapsed
	case sequencer.EventTerminated:
		p.Finished = true
		p.StepRemaining, p.StepElapsed = 0, 0
	}
	t.progress[session] = p
}

// Progress returns the tracked timing for a session.
func (t *TelemetryService) Progress(sessionID string) Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress[sessionID]
}

// Forget drops the tracked progress of a finished session.
func (t *TelemetryService) Forget(sessionID string) {
	t.mu.Lock()
	delete(t.progress, sessionID)
	t.mu.Unlock()
}

// Dropped reports how many events were discarded because the queue was full.
func (t *TelemetryService) Dropped() int64 {
	return t.dropped.Load()
}

// Run writes queued events until ctx is canceled, then drains what is left.
func (t *TelemetryService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.drain()
			return
		case rec := <-t.queue:
			t.write(ctx, rec)
		}
	}
}

func (t *TelemetryService) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-t.queue:
			t.write(ctx, rec)
		default:
			return
		}
	}
}

func (t *TelemetryService) write(ctx context.Context, rec telemetryRecord) {
	ev := rec.event

	if !ev.IsProgress() && t.eventRepo != nil {
		err := t.eventRepo.Append(ctx, models.RunEvent{
			SessionID:  rec.session,
			OccurredAt: rec.at,
			Kind:       string(ev.Kind),
			Valve:      ev.Valve,
			State:      string(ev.State),
			Value:      ev.Value,
		})
		if err != nil {
			t.log.Errorw("telemetry_persist_failed", "session_id", rec.session, "kind", ev.Kind, "error", err)
		}
	}

	if t.metrics != nil {
		t.metrics.WriteRunEvent(rec.session, ev, rec.at)
	}

	if t.pub == nil {
		return
	}
	payload, err := json.Marshal(TelemetryMessage{
		SessionID:  rec.session,
		Kind:       string(ev.Kind),
		Tuple:      ev.Tuple(),
		OccurredAt: rec.at,
	})
	if err != nil {
		t.log.Errorw("telemetry_encode_failed", "kind", ev.Kind, "error", err)
		return
	}
	if err := t.pub.Publish(t.topic, payload, 0, false); err != nil {
		t.log.Warnw("telemetry_mirror_failed", "topic", t.topic, "kind", ev.Kind, "error", err)
	}
}
