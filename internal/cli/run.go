package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/script"
	"controlling_fluidics/internal/sequencer"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Paused   bool
	Progress bool
	Tick     time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <script-file>",
		Short: "Run a script file on the configured valves",
		Long: `Run a script file without the HTTP API, printing every event.

Controls are read from stdin, one per line:
  <enter> or p   start / pause / resume
  s              skip the current wait
  x              stop the run
  q              quit`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runScript(ctx, rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Paused, "paused", false, "load the script and wait for a start control")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "also print t_r / t_a progress events")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "override engine.tick")

	return cmd
}

func runScript(ctx context.Context, rootOpts *RootOptions, opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Tick > 0 {
		cfg.Engine.Tick = opts.Tick
	}
	log := logger.Get(cfg.LogLevel)
	out := cmd.OutOrStdout()

	text, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read script", err)
	}

	aliases := make([]string, 0, len(cfg.Valves))
	for _, v := range cfg.Valves {
		aliases = append(aliases, v.Alias)
	}
	sc, err := script.Parse(string(text), script.NewValveSet(aliases...))
	if err != nil {
		fmt.Fprintf(out, "✗ %s: %v\n", path, err)
		return WrapExitError(ExitFailure, "invalid script", err)
	}
	if sc.Len() == 0 {
		return WrapExitError(ExitFailure, "invalid script", script.ErrEmptyScript)
	}

	client, err := connectMQTT(cfg, log)
	if err != nil {
		return WrapExitError(ExitFailure, "mqtt", err)
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}
	bank, err := buildBank(cfg, client, log)
	if err != nil {
		return WrapExitError(ExitFailure, "valves", err)
	}

	sink := &printSink{w: out, progress: opts.Progress}
	sess := sequencer.NewSession(sc, sequencer.SessionConfig{
		Tick:   cfg.Engine.Tick,
		Poll:   cfg.Engine.ProcessorPoll,
		Driver: bank,
		Sink:   sink,
		Logger: log.Named("session"),
	})

	fmt.Fprintf(out, "▶ %s: %d steps, expected %s (session %s)\n", path, sc.Len(), formatSeconds(sc.ExpectedSeconds), sess.ID)
	sess.Start(context.Background())
	if !opts.Paused {
		sess.Send(sequencer.SignalStartPause)
	}

	quit := make(chan struct{})
	go readControls(cmd.InOrStdin(), sess, quit)

	finished := true
	select {
	case <-sess.Done():
	case <-ctx.Done():
		finished = false
	case <-quit:
		finished = false
	}

	if !finished {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			log.Errorw("session_close_failed", "session_id", sess.ID, "err", err)
		}
	}
	if err := bank.Reset(); err != nil {
		log.Errorw("valves_reset_failed", "err", err)
	}

	if finished {
		fmt.Fprintln(out, "✓ run finished")
	} else {
		fmt.Fprintln(out, "■ run aborted")
	}
	return nil
}

// readControls maps stdin lines to control signals until EOF, quit or the
// end of the session. The scanning goroutine exits at the next line or EOF.
func readControls(in io.Reader, sess *sequencer.Session, quit chan<- struct{}) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-sess.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-sess.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "", "p":
				sess.Send(sequencer.SignalStartPause)
			case "s":
				sess.Send(sequencer.SignalSkip)
			case "x":
				sess.Send(sequencer.SignalStop)
			case "q":
				close(quit)
				return
			}
		}
	}
}

// printSink writes run events to the terminal in their literal form.
type printSink struct {
	mu       sync.Mutex
	w        io.Writer
	progress bool
}

func (p *printSink) Publish(ev sequencer.Event) {
	if ev.IsProgress() && !p.progress {
		return
	}
	parts := make([]string, 0, 3)
	for _, v := range ev.Tuple() {
		parts = append(parts, fmt.Sprint(v))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  (%s)\n", strings.Join(parts, ", "))
}
