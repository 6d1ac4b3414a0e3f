package valves

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type stubPublisher struct {
	calls []publishCall
	err   error
}

func (p *stubPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.calls = append(p.calls, publishCall{topic, payload, qos, retained})
	return p.err
}

type failingOutput struct{ bad int }

func (o failingOutput) Write(solenoid int, _ bool) error {
	if solenoid == o.bad {
		return errors.New("line stuck")
	}
	return nil
}

func testConfigs() []Config {
	return []Config{
		{Alias: "Waste", Solenoid: 0, DefaultClosed: true},
		{Alias: "reagent", Solenoid: 1, DefaultClosed: true, Inverted: true},
		{Alias: "vent", Solenoid: 2},
	}
}

func TestNewBank_Validation(t *testing.T) {
	_, err := NewBank([]Config{{Alias: "a", Solenoid: 0}, {Alias: "A", Solenoid: 1}}, nil)
	assert.ErrorIs(t, err, ErrDuplicateValve)

	_, err = NewBank([]Config{{Alias: "two words", Solenoid: 0}}, nil)
	assert.ErrorIs(t, err, ErrInvalidValve)

	_, err = NewBank([]Config{{Alias: "", Solenoid: 0}}, nil)
	assert.ErrorIs(t, err, ErrInvalidValve)

	b, err := NewBank(testConfigs(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"waste", "reagent", "vent"}, b.Aliases())
}

func TestBank_OpenCloseWritesLevels(t *testing.T) {
	out := NewLogOutput(nil)
	b, err := NewBank(testConfigs(), out)
	require.NoError(t, err)

	require.NoError(t, b.Open("WASTE"))
	high, ok := out.Level(0)
	require.True(t, ok)
	assert.False(t, high, "open on a normal valve drives the line low")

	require.NoError(t, b.Open("reagent"))
	high, _ = out.Level(1)
	assert.True(t, high, "inverted valve drives the line high to open")

	require.NoError(t, b.Close("reagent"))
	high, _ = out.Level(1)
	assert.False(t, high)

	assert.Equal(t, map[string]string{"waste": StateOpen, "reagent": StateClosed, "vent": StateOpen}, b.StateMap())
}

func TestBank_UnknownValve(t *testing.T) {
	b, err := NewBank(testConfigs(), NewLogOutput(nil))
	require.NoError(t, err)
	assert.ErrorIs(t, b.Open("drain"), ErrUnknownValve)
}

func TestBank_ResetAndBulk(t *testing.T) {
	b, err := NewBank(testConfigs(), NewLogOutput(nil))
	require.NoError(t, err)

	require.NoError(t, b.OpenAll())
	for _, s := range b.States() {
		assert.Equal(t, StateOpen, s.State, s.Alias)
	}

	require.NoError(t, b.Reset())
	assert.Equal(t, []ValveState{
		{Alias: "waste", Solenoid: 0, State: StateClosed},
		{Alias: "reagent", Solenoid: 1, State: StateClosed},
		{Alias: "vent", Solenoid: 2, State: StateOpen},
	}, b.States())

	require.NoError(t, b.CloseAll())
	assert.Equal(t, StateClosed, b.StateMap()["vent"])
}

func TestBank_WriteFailureKeepsState(t *testing.T) {
	b, err := NewBank(testConfigs(), failingOutput{bad: 1})
	require.NoError(t, err)

	err = b.OpenAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reagent")

	states := b.StateMap()
	assert.Equal(t, StateOpen, states["waste"])
	assert.Equal(t, StateClosed, states["reagent"])
}

func TestMQTTOutput_PublishesCommand(t *testing.T) {
	pub := &stubPublisher{}
	b, err := NewBank(testConfigs(), NewMQTTOutput(pub, "lab", 1))
	require.NoError(t, err)

	require.NoError(t, b.Close("vent"))
	require.Len(t, pub.calls, 1)

	call := pub.calls[0]
	assert.Equal(t, "lab/solenoid/2/set", call.topic)
	assert.Equal(t, byte(1), call.qos)
	assert.True(t, call.retained)

	var cmd Command
	require.NoError(t, json.Unmarshal(call.payload, &cmd))
	assert.Equal(t, Command{Solenoid: 2, Level: LevelHigh}, cmd)
}

func TestMQTTOutput_ErrorPropagates(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	b, err := NewBank(testConfigs(), NewMQTTOutput(pub, "lab", 0))
	require.NoError(t, err)

	assert.Error(t, b.Open("vent"))
	assert.Equal(t, StateOpen, b.StateMap()["vent"], "state unchanged from default")
}
