package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"controlling_fluidics/internal/valves"
)

// Driver kinds.
const (
	DriverSimulated = "simulated"
	DriverMQTT      = "mqtt"
)

const envPrefix = "FLUIDICS"

// Config is the application configuration read from configs/config.yml.
type Config struct {
	Port      string          `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	DB        DBConfig        `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Driver    DriverConfig    `mapstructure:"driver"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Valves    []valves.Config `mapstructure:"valves"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// EngineConfig tunes the script engine and processor loops.
type EngineConfig struct {
	Tick          time.Duration `mapstructure:"tick"`
	ProcessorPoll time.Duration `mapstructure:"processor_poll"`
}

type DriverConfig struct {
	Kind string     `mapstructure:"kind"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// MQTTConfig points at the broker the valve bridge listens on.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

// TelemetryConfig controls where run events are mirrored.
type TelemetryConfig struct {
	MQTTTopic string       `mapstructure:"mqtt_topic"`
	Influx    InfluxConfig `mapstructure:"influx"`
}

// InfluxConfig enables the time-series mirror of run telemetry.
type InfluxConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Token         string        `mapstructure:"token"`
	Org           string        `mapstructure:"org"`
	Bucket        string        `mapstructure:"bucket"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

var (
	ErrNoValves      = errors.New("config: at least one valve is required")
	ErrUnknownDriver = errors.New("config: unknown driver kind")
	ErrInvalidTiming = errors.New("config: engine tick and processor poll must be positive")
	ErrInvalidQoS    = errors.New("config: mqtt qos must be 0, 1 or 2")
	ErrInvalidInflux = errors.New("config: telemetry.influx needs url, org and bucket when enabled")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("engine.tick", 10*time.Millisecond)
	v.SetDefault("engine.processor_poll", 50*time.Millisecond)
	v.SetDefault("driver.kind", DriverSimulated)
	v.SetDefault("driver.mqtt.broker", "")
	v.SetDefault("driver.mqtt.client_id", "fluidics-core")
	v.SetDefault("driver.mqtt.username", "")
	v.SetDefault("driver.mqtt.password", "")
	v.SetDefault("driver.mqtt.topic_prefix", "fluidics")
	v.SetDefault("driver.mqtt.qos", 1)
	// Registered so FLUIDICS_TELEMETRY_MQTT_TOPIC is seen by Unmarshal.
	v.SetDefault("telemetry.mqtt_topic", "")
	v.SetDefault("telemetry.influx.enabled", false)
	v.SetDefault("telemetry.influx.url", "")
	v.SetDefault("telemetry.influx.token", "")
	v.SetDefault("telemetry.influx.org", "")
	v.SetDefault("telemetry.influx.bucket", "fluidics")
	v.SetDefault("telemetry.influx.batch_size", 100)
	v.SetDefault("telemetry.influx.flush_interval", 5*time.Second)
}

// Load reads the named config file from the given directories. Values can be
// overridden with FLUIDICS_* environment variables (FLUIDICS_DB_PATH, ...).
func Load(name string, paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", name, err)
	}
	return decode(v)
}

// LoadFile reads an explicit config file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the rest of the application relies on.
func (c *Config) Validate() error {
	if len(c.Valves) == 0 {
		return ErrNoValves
	}
	switch c.Driver.Kind {
	case DriverSimulated:
	case DriverMQTT:
		if c.Driver.MQTT.Broker == "" {
			return fmt.Errorf("%w: driver.mqtt.broker is required for the mqtt driver", ErrUnknownDriver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver.Kind)
	}
	if c.Driver.MQTT.QoS < 0 || c.Driver.MQTT.QoS > 2 {
		return ErrInvalidQoS
	}
	if c.Engine.Tick <= 0 || c.Engine.ProcessorPoll <= 0 {
		return ErrInvalidTiming
	}
	if in := c.Telemetry.Influx; in.Enabled && (in.URL == "" || in.Org == "" || in.Bucket == "") {
		return ErrInvalidInflux
	}
	return nil
}

// UsesMQTT reports whether any component needs a broker connection.
func (c *Config) UsesMQTT() bool {
	return c.Driver.Kind == DriverMQTT || c.Telemetry.MQTTTopic != ""
}
