package cli

import (
	"fmt"

	"controlling_fluidics/internal/config"
	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/mqtt"
	"controlling_fluidics/internal/valves"
)

// connectMQTT opens the broker connection when the driver or the telemetry
// mirror needs one. It returns a nil client otherwise.
func connectMQTT(cfg *config.Config, log *logger.Logger) (*mqtt.Client, error) {
	if !cfg.UsesMQTT() {
		return nil, nil
	}
	client, err := mqtt.Connect(cfg.Driver.MQTT, log.Named("mqtt"))
	if err != nil {
		return nil, fmt.Errorf("connect mqtt: %w", err)
	}
	return client, nil
}

// publisherOf returns client as a valves.Publisher, or a nil interface for a
// nil client.
func publisherOf(client *mqtt.Client) valves.Publisher {
	if client == nil {
		return nil
	}
	return client
}

// buildBank creates the valve bank on the configured output and drives every
// valve to its default state.
func buildBank(cfg *config.Config, client *mqtt.Client, log *logger.Logger) (*valves.Bank, error) {
	var out valves.Output
	switch cfg.Driver.Kind {
	case config.DriverMQTT:
		if client == nil {
			return nil, fmt.Errorf("mqtt driver selected without a broker connection")
		}
		out = valves.NewMQTTOutput(client, cfg.Driver.MQTT.TopicPrefix, byte(cfg.Driver.MQTT.QoS))
	default:
		out = valves.NewLogOutput(log.Named("solenoid"))
	}

	bank, err := valves.NewBank(cfg.Valves, out)
	if err != nil {
		return nil, fmt.Errorf("build valve bank: %w", err)
	}
	if err := bank.Reset(); err != nil {
		return nil, fmt.Errorf("reset valves: %w", err)
	}
	return bank, nil
}
