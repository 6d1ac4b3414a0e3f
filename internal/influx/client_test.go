package influx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlling_fluidics/internal/config"
	"controlling_fluidics/internal/sequencer"
)

func tagMap(t *testing.T, ev sequencer.Event) (map[string]string, map[string]interface{}) {
	t.Helper()
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	p := runEventPoint("s1", ev, at)
	require.Equal(t, measurementRun, p.Name())
	require.True(t, p.Time().Equal(at))

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return tags, fields
}

func TestRunEventPoint_Progress(t *testing.T) {
	tags, fields := tagMap(t, sequencer.Event{Kind: sequencer.EventStepProgress, Value: 12, Elapsed: 48})

	assert.Equal(t, "s1", tags["session_id"])
	assert.Equal(t, "t_r", tags["kind"])
	assert.NotContains(t, tags, "valve")
	assert.EqualValues(t, 12, fields["remaining_s"])
	assert.EqualValues(t, 48, fields["elapsed_s"])
}

func TestRunEventPoint_ValveAndState(t *testing.T) {
	tags, fields := tagMap(t, sequencer.Event{Kind: sequencer.EventOpen, Valve: "waste"})
	assert.Equal(t, "waste", tags["valve"])
	assert.Equal(t, true, fields["open"])

	_, fields = tagMap(t, sequencer.Event{Kind: sequencer.EventState, State: sequencer.StatePaused})
	assert.Equal(t, "paused", fields["state"])

	_, fields = tagMap(t, sequencer.Event{Kind: sequencer.EventPump, Value: 5})
	assert.EqualValues(t, 5, fields["value"])
}

func TestConnectDisabled(t *testing.T) {
	c, err := Connect(config.InfluxConfig{}, nil)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrNotConnected)
	c.WriteRunEvent("s1", sequencer.Event{Kind: sequencer.EventPause}, time.Now())
}
