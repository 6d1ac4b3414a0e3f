package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlling_fluidics/internal/script"
	"controlling_fluidics/internal/sequencer"
)

func TestRunScriptToCompletion(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", testConfig)
	scriptPath := writeFile(t, dir, "flush.txt", "open waste\npump 5 hz\nclose waste\nopen reagent\n")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{ConfigPath: cfgPath})
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{scriptPath})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "4 steps")
	assert.Contains(t, out, "(open, waste)")
	assert.Contains(t, out, "(pump, 5)")
	assert.Contains(t, out, "(close, waste)")
	assert.Contains(t, out, "(terminate)")
	assert.Contains(t, out, "run finished")
}

func TestRunQuitFromStdin(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", testConfig)
	scriptPath := writeFile(t, dir, "long.txt", "open waste\nwait 1 h\n")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{ConfigPath: cfgPath})
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("q\n"))
	cmd.SetArgs([]string{"--paused", scriptPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "run aborted")
}

func TestRunRejectsInvalidScript(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", testConfig)
	scriptPath := writeFile(t, dir, "bad.txt", "wait 5 fortnights\n")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{ConfigPath: cfgPath})
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{scriptPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, buf.String(), "line 1")
}

func TestPrintSinkSkipsProgressByDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := &printSink{w: buf}
	sink.Publish(sequencer.Event{Kind: sequencer.EventStepProgress, Value: 3, Elapsed: 1})
	sink.Publish(sequencer.Event{Kind: sequencer.EventOpen, Valve: "waste"})
	assert.Equal(t, "  (open, waste)\n", buf.String())

	buf.Reset()
	sink.progress = true
	sink.Publish(sequencer.Event{Kind: sequencer.EventStepProgress, Value: 3, Elapsed: 1})
	assert.Equal(t, "  (t_r, 3, 1)\n", buf.String())
}

func TestReadControlsReturnsWhenSessionEnds(t *testing.T) {
	sc, err := script.Parse("wait 1 h", script.NewValveSet())
	require.NoError(t, err)
	sess := sequencer.NewSession(sc, sequencer.SessionConfig{Tick: time.Millisecond, Poll: time.Millisecond})
	sess.Start(context.Background())

	// stdin that never delivers a line
	pr, pw := io.Pipe()
	defer pw.Close()

	returned := make(chan struct{})
	go func() {
		readControls(pr, sess, make(chan struct{}))
		close(returned)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sess.Close(ctx))

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("readControls still blocked after the session ended")
	}
}
