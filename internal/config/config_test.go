package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
port: "9090"
log_level: debug
db:
  path: /tmp/fluidics.db
engine:
  tick: 20ms
valves:
  - alias: waste
    solenoid: 0
    default_closed: true
  - alias: reagent
    solenoid: 1
    inverted: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/fluidics.db", cfg.DB.Path)
	assert.Equal(t, 20*time.Millisecond, cfg.Engine.Tick)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.ProcessorPoll)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, DriverSimulated, cfg.Driver.Kind)
	assert.Equal(t, "fluidics", cfg.Driver.MQTT.TopicPrefix)
	assert.False(t, cfg.UsesMQTT())

	require.Len(t, cfg.Valves, 2)
	assert.Equal(t, "waste", cfg.Valves[0].Alias)
	assert.True(t, cfg.Valves[0].DefaultClosed)
	assert.True(t, cfg.Valves[1].Inverted)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("FLUIDICS_DB_PATH", "/var/lib/fluidics.db")
	t.Setenv("FLUIDICS_TELEMETRY_MQTT_TOPIC", "lab/run")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fluidics.db", cfg.DB.Path)
	assert.Equal(t, "lab/run", cfg.Telemetry.MQTTTopic)
	assert.True(t, cfg.UsesMQTT())
}

func TestLoad_SearchesPaths(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := Load("config", filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)

	_, err = Load("config", t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "port: \"1\"\n"))
	assert.ErrorIs(t, err, ErrNoValves)

	_, err = LoadFile(writeConfig(t, sampleYAML+"driver:\n  kind: serial\n"))
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = LoadFile(writeConfig(t, sampleYAML+"driver:\n  kind: mqtt\n"))
	assert.ErrorIs(t, err, ErrUnknownDriver, "mqtt driver needs a broker")

	cfg, err := LoadFile(writeConfig(t, sampleYAML+"driver:\n  kind: mqtt\n  mqtt:\n    broker: localhost:1883\n"))
	require.NoError(t, err)
	assert.True(t, cfg.UsesMQTT())

	_, err = LoadFile(writeConfig(t, sampleYAML+"driver:\n  mqtt:\n    qos: 3\n"))
	assert.ErrorIs(t, err, ErrInvalidQoS)

	bad := *cfg
	bad.Engine.Tick = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTiming)
}

func TestInfluxSection(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Influx.Enabled)
	assert.Equal(t, "fluidics", cfg.Telemetry.Influx.Bucket)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.Influx.FlushInterval)

	_, err = LoadFile(writeConfig(t, sampleYAML+"telemetry:\n  influx:\n    enabled: true\n"))
	assert.ErrorIs(t, err, ErrInvalidInflux)

	t.Setenv("FLUIDICS_TELEMETRY_INFLUX_TOKEN", "secret")
	cfg, err = LoadFile(writeConfig(t, sampleYAML+"telemetry:\n  influx:\n    enabled: true\n    url: http://localhost:8086\n    org: lab\n"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Telemetry.Influx.Token)
	assert.False(t, cfg.UsesMQTT())
}
