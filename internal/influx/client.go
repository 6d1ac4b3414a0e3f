// Package influx mirrors run telemetry into an InfluxDB v2 bucket, including
// the per-second progress events that the event log does not keep.
package influx

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"controlling_fluidics/internal/config"
	"controlling_fluidics/internal/sequencer"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second

	measurementRun = "fluidics_run"
)

// Logger is the part of the sugared logger the client needs.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
}

// Client writes run events through the non-blocking, batching write API.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      Logger

	mu        sync.RWMutex
	connected bool
}

// Connect pings the server and prepares the write API for cfg.Org/cfg.Bucket.
func Connect(cfg config.InfluxConfig, log Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batch)).
			SetFlushInterval(uint(flush.Milliseconds())))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: %s not healthy", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		log:       log,
		connected: true,
	}
	go c.drainErrors(c.writeAPI.Errors())
	return c, nil
}

// async write failures surface only on this channel
func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		if c.log != nil {
			c.log.Warnw("influx_write_failed", "err", err)
		}
	}
}

// WriteRunEvent queues one point for ev. It never blocks on the network.
func (c *Client) WriteRunEvent(sessionID string, ev sequencer.Event, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(runEventPoint(sessionID, ev, at))
}

// runEventPoint maps an event to a point: tags identify the run, kind and
// valve; fields carry the numbers.
func runEventPoint(sessionID string, ev sequencer.Event, at time.Time) *write.Point {
	tags := map[string]string{
		"session_id": sessionID,
		"kind":       string(ev.Kind),
	}
	if ev.Valve != "" {
		tags["valve"] = ev.Valve
	}

	fields := map[string]interface{}{}
	switch ev.Kind {
	case sequencer.EventStepProgress, sequencer.EventRunProgress:
		fields["remaining_s"] = ev.Value
		fields["elapsed_s"] = ev.Elapsed
	case sequencer.EventState:
		fields["state"] = string(ev.State)
	case sequencer.EventOpen:
		fields["open"] = true
	case sequencer.EventClose:
		fields["open"] = false
	default:
		fields["value"] = ev.Value
	}
	return write.NewPoint(measurementRun, tags, fields, at)
}

func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influx health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influx health check: server not healthy")
	}
	return nil
}

// Close flushes pending points and closes the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
