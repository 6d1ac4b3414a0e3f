package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/script"
	"controlling_fluidics/internal/sequencer"
)

var (
	// ErrSessionActive is returned when loading while another run is loaded.
	ErrSessionActive = errors.New("a script session is already active")
	// ErrNoSession is returned for control signals without a loaded script.
	ErrNoSession = errors.New("no script session is loaded")
)

const sessionCloseTimeout = 5 * time.Second

// RunnerConfig carries the engine timings from the engine config section.
type RunnerConfig struct {
	Tick time.Duration
	Poll time.Duration
	Now  func() time.Time
}

// ValveReader is the part of the valve bank the runner reports on.
type ValveReader interface {
	StateMap() map[string]string
}

// RunnerService owns the single active script session.
type RunnerService struct {
	scripts   *ScriptsService
	driver    sequencer.ValveDriver
	valves    ValveReader
	telemetry *TelemetryService
	cfg       RunnerConfig
	log       *logger.Logger

	mu      sync.Mutex
	session *sequencer.Session
	name    string
	steps   []string
	cancel  context.CancelFunc
}

func NewRunnerService(scripts *ScriptsService, driver sequencer.ValveDriver, valves ValveReader,
	telemetry *TelemetryService, cfg RunnerConfig, log *logger.Logger) *RunnerService {
	return &RunnerService{
		scripts:   scripts,
		driver:    driver,
		valves:    valves,
		telemetry: telemetry,
		cfg:       cfg,
		log:       log.Named("runner"),
	}
}

// Load parses the requested script and starts a session for it in the Idle
// state. Only one session may be active; a finished session is replaced.
func (s *RunnerService) Load(ctx context.Context, p LoadParams) (models.RunStatus, error) {
	sc, name, err := s.scripts.Resolve(ctx, p)
	if err != nil {
		return models.RunStatus{}, err
	}
	if sc.Len() == 0 {
		return models.RunStatus{}, script.ErrEmptyScript
	}

	s.mu.Lock()
	if s.activeLocked() {
		s.mu.Unlock()
		return models.RunStatus{}, ErrSessionActive
	}
	s.releaseLocked()

	id := uuid.NewString()
	cfg := sequencer.SessionConfig{
		ID:     id,
		Tick:   s.cfg.Tick,
		Poll:   s.cfg.Poll,
		Now:    s.cfg.Now,
		Driver: s.driver,
		Logger: s.log.Named("session"),
	}
	if s.telemetry != nil {
		cfg.Sink = s.telemetry.Sink(id)
	}
	sess := sequencer.NewSession(sc, cfg)

	runCtx, cancel := context.WithCancel(context.Background())
	s.session = sess
	s.name = name
	s.steps = sc.Steps()
	s.cancel = cancel
	sess.Start(runCtx)
	s.mu.Unlock()

	s.log.Infow("script_loaded", "session_id", sess.ID, "script", name,
		"steps", sc.Len(), "expected_s", sc.ExpectedSeconds)
	return s.Status(), nil
}

// Signal forwards a control signal to the active session. Stop on a loaded
// but never started script unloads it.
func (s *RunnerService) Signal(ctx context.Context, sig sequencer.Signal) (models.RunStatus, error) {
	s.mu.Lock()
	sess := s.session
	active := s.activeLocked()
	s.mu.Unlock()

	if !active {
		return models.RunStatus{}, ErrNoSession
	}
	if sig == sequencer.SignalStop && sess.Snapshot().State == sequencer.StateIdle {
		if err := s.Unload(ctx); err != nil {
			return models.RunStatus{}, err
		}
		return s.Status(), nil
	}

	sess.Send(sig)
	s.log.Infow("run_signal", "session_id", sess.ID, "signal", sig)
	return s.Status(), nil
}

// Unload terminates the active session and waits for it to exit.
func (s *RunnerService) Unload(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, sessionCloseTimeout)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		return fmt.Errorf("close session %s: %w", sess.ID, err)
	}

	s.mu.Lock()
	if s.session == sess {
		s.releaseLocked()
	}
	s.mu.Unlock()
	s.log.Infow("script_unloaded", "session_id", sess.ID)
	return nil
}

// Shutdown ends any session; used when the process exits.
func (s *RunnerService) Shutdown(ctx context.Context) error {
	err := s.Unload(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	return err
}

// Done returns the active session's done channel, or nil without one.
func (s *RunnerService) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.Done()
}

// Status combines the engine snapshot, the tracked telemetry and the valve states.
func (s *RunnerService) Status() models.RunStatus {
	s.mu.Lock()
	sess, name, steps := s.session, s.name, s.steps
	active := s.activeLocked()
	s.mu.Unlock()

	st := models.RunStatus{
		State:     string(sequencer.StateIdle),
		UpdatedAt: time.Now().UTC(),
	}
	if s.valves != nil {
		st.Valves = s.valves.StateMap()
	}
	if sess == nil {
		return st
	}

	snap := sess.Snapshot()
	st.SessionID = sess.ID
	st.ScriptName = name
	st.Loaded = active
	st.State = string(snap.State)
	st.CurrentStep = snap.CurrentStep
	st.StepsLeft = snap.StepsLeft
	st.StepRemainingSeconds = snap.StepRemainingSeconds
	if snap.StepsLeft > 0 && snap.StepsLeft <= len(steps) {
		st.Steps = steps[len(steps)-snap.StepsLeft:]
	}
	st.ExpectedSeconds = snap.ExpectedSeconds

	if s.telemetry != nil {
		p := s.telemetry.Progress(sess.ID)
		if st.ExpectedSeconds == 0 {
			st.ExpectedSeconds = p.Expected
		}
		st.ElapsedSeconds = p.RunElapsed
		st.RemainingSeconds = p.RunRemaining
		st.StepElapsedSeconds = p.StepElapsed
		if p.Expected == 0 && !p.Finished {
			// loaded, not started yet
			st.RemainingSeconds = snap.ExpectedSeconds
		}
	}
	if !active {
		st.StepRemainingSeconds = 0
		st.StepElapsedSeconds = 0
	}
	return st
}

// activeLocked reports whether the current session is still running its goroutines.
func (s *RunnerService) activeLocked() bool {
	if s.session == nil {
		return false
	}
	select {
	case <-s.session.Done():
		return false
	default:
		return true
	}
}

func (s *RunnerService) releaseLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.session != nil && s.telemetry != nil {
		s.telemetry.Forget(s.session.ID)
	}
	s.session, s.name, s.steps, s.cancel = nil, "", nil, nil
}
