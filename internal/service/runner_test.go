package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"controlling_fluidics/internal/script"
	"controlling_fluidics/internal/sequencer"
	"controlling_fluidics/internal/valves"
)

type runnerFixture struct {
	runner    *RunnerService
	bank      *valves.Bank
	events    *fakeEventRepo
	telemetry *TelemetryService
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	bank := newTestBank(t)
	events := &fakeEventRepo{}
	tel := NewTelemetryService(events, nil, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tel.Run(ctx)
		close(done)
	}()

	scripts := NewScriptsService(newMemScriptRepo(), script.NewValveSet(bank.Aliases()...))

	r := NewRunnerService(scripts, bank, bank, tel, RunnerConfig{Tick: time.Millisecond, Poll: time.Millisecond}, nil)
	t.Cleanup(func() {
		_ = r.Shutdown(context.Background())
		cancel()
		<-done
	})
	return &runnerFixture{runner: r, bank: bank, events: events, telemetry: tel}
}

func waitDone(t *testing.T, r *RunnerService) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestRunnerService_RunsLoadedScript(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()

	st, err := f.runner.Load(ctx, LoadParams{Text: "open waste\nwait 0 s\nclose reagent\nopen reagent"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.Loaded || st.State != string(sequencer.StateIdle) || st.StepsLeft != 4 || len(st.Steps) != 4 {
		t.Fatalf("unexpected status after load: %+v", st)
	}

	if _, err := f.runner.Load(ctx, LoadParams{Text: "pause"}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	if _, err := f.runner.Signal(ctx, sequencer.SignalStartPause); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitDone(t, f.runner)

	states := f.bank.StateMap()
	if states["waste"] != valves.StateOpen || states["reagent"] != valves.StateOpen {
		t.Fatalf("valves not actuated: %v", states)
	}

	final := f.runner.Status()
	if final.Loaded || final.State != string(sequencer.StateIdle) {
		t.Fatalf("finished run should report idle and unloaded: %+v", final)
	}

	if _, err := f.runner.Signal(ctx, sequencer.SignalSkip); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after completion, got %v", err)
	}

	// a finished session is replaced by the next load
	if _, err := f.runner.Load(ctx, LoadParams{Text: "pause"}); err != nil {
		t.Fatalf("reload after completion: %v", err)
	}
}

func TestRunnerService_PersistsNonProgressEvents(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()

	st, err := f.runner.Load(ctx, LoadParams{Text: "open waste\nwait 0 s"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := f.runner.Signal(ctx, sequencer.SignalStartPause); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitDone(t, f.runner)

	deadline := time.Now().Add(2 * time.Second)
	for {
		evs := f.events.Appended()
		if len(evs) > 0 && evs[len(evs)-1].Kind == string(sequencer.EventTerminated) {
			for _, ev := range evs {
				if ev.Kind == string(sequencer.EventStepProgress) || ev.Kind == string(sequencer.EventRunProgress) {
					t.Fatalf("progress events must not be persisted: %+v", ev)
				}
				if ev.SessionID != st.SessionID {
					t.Fatalf("event for wrong session: %+v", ev)
				}
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("terminate event never persisted: %+v", evs)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunnerService_StopBeforeStartUnloads(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()

	if _, err := f.runner.Signal(ctx, sequencer.SignalStartPause); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := f.runner.Load(ctx, LoadParams{Text: "wait 1 h"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := f.runner.Signal(ctx, sequencer.SignalStop)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st.Loaded || st.SessionID != "" {
		t.Fatalf("stop on an idle session should unload it: %+v", st)
	}
	if err := f.runner.Unload(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRunnerService_PauseReportsRemaining(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()

	if _, err := f.runner.Load(ctx, LoadParams{Text: "wait 1 h"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := f.runner.Signal(ctx, sequencer.SignalStartPause); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.runner.Status().StepRemainingSeconds == 0 {
		if time.Now().After(deadline) {
			t.Fatal("wait step never started")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := f.runner.Signal(ctx, sequencer.SignalStartPause); err != nil {
		t.Fatalf("pause: %v", err)
	}
	for f.runner.Status().State != string(sequencer.StatePaused) {
		if time.Now().After(deadline) {
			t.Fatal("engine never paused")
		}
		time.Sleep(2 * time.Millisecond)
	}

	st := f.runner.Status()
	if st.StepRemainingSeconds != 3600 || st.ExpectedSeconds != 3600 || st.CurrentStep != "wait 3600 s" {
		t.Fatalf("unexpected paused status: %+v", st)
	}
	if err := f.runner.Unload(ctx); err != nil {
		t.Fatalf("Unload: %v", err)
	}
}

func TestRunnerService_RejectsEmptyScript(t *testing.T) {
	f := newRunnerFixture(t)
	_, err := f.runner.Load(context.Background(), LoadParams{Text: "# nothing to do\n\n"})
	if !errors.Is(err, script.ErrEmptyScript) {
		t.Fatalf("expected ErrEmptyScript, got %v", err)
	}
	if f.runner.Status().Loaded {
		t.Fatal("an empty script must not create a session")
	}
}
