package influx

import "errors"

var (
	// ErrDisabled is returned by Connect when telemetry.influx.enabled is false.
	ErrDisabled = errors.New("influx: disabled in configuration")
	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influx: connection failed")
	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influx: not connected")
)
