package valves

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Line levels written to the solenoid driver.
const (
	LevelHigh = "H"
	LevelLow  = "L"
)

// InfoLogger is the part of the sugared logger LogOutput needs.
type InfoLogger interface {
	Infow(msg string, keysAndValues ...interface{})
}

// LogOutput is the simulated driver: it records line levels in memory and
// logs every write.
type LogOutput struct {
	log InfoLogger

	mu     sync.Mutex
	levels map[int]bool
}

func NewLogOutput(log InfoLogger) *LogOutput {
	return &LogOutput{log: log, levels: make(map[int]bool)}
}

func (o *LogOutput) Write(solenoid int, high bool) error {
	o.mu.Lock()
	o.levels[solenoid] = high
	o.mu.Unlock()

	if o.log != nil {
		o.log.Infow("solenoid_write", "solenoid", solenoid, "level", levelName(high))
	}
	return nil
}

// Level returns the last level written to solenoid.
func (o *LogOutput) Level(solenoid int) (high, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	high, ok = o.levels[solenoid]
	return high, ok
}

// Publisher is implemented by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Command is the payload published to <prefix>/solenoid/<n>/set.
type Command struct {
	Solenoid int    `json:"solenoid"`
	Level    string `json:"level"`
}

// MQTTOutput forwards solenoid writes to a bridge listening on the broker.
type MQTTOutput struct {
	pub    Publisher
	prefix string
	qos    byte
}

func NewMQTTOutput(pub Publisher, topicPrefix string, qos byte) *MQTTOutput {
	return &MQTTOutput{pub: pub, prefix: topicPrefix, qos: qos}
}

// Topic returns the command topic for solenoid.
func (o *MQTTOutput) Topic(solenoid int) string {
	return fmt.Sprintf("%s/solenoid/%d/set", o.prefix, solenoid)
}

func (o *MQTTOutput) Write(solenoid int, high bool) error {
	payload, err := json.Marshal(Command{Solenoid: solenoid, Level: levelName(high)})
	if err != nil {
		return fmt.Errorf("encode solenoid command: %w", err)
	}
	// Retained so a restarted bridge picks up the last level.
	return o.pub.Publish(o.Topic(solenoid), payload, o.qos, true)
}

func levelName(high bool) string {
	if high {
		return LevelHigh
	}
	return LevelLow
}
