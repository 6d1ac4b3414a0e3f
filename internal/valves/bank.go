package valves

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Valve states as reported to clients.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

var (
	ErrUnknownValve   = errors.New("unknown valve")
	ErrDuplicateValve = errors.New("duplicate valve alias")
	ErrInvalidValve   = errors.New("invalid valve definition")
)

// Config describes one solenoid valve.
type Config struct {
	Alias         string `mapstructure:"alias" json:"alias"`
	Solenoid      int    `mapstructure:"solenoid" json:"solenoid"`
	DefaultClosed bool   `mapstructure:"default_closed" json:"default_closed"`
	Inverted      bool   `mapstructure:"inverted" json:"inverted"`
}

// Output drives a solenoid line high or low.
type Output interface {
	Write(solenoid int, high bool) error
}

// ValveState is a snapshot of one valve.
type ValveState struct {
	Alias    string `json:"alias"`
	Solenoid int    `json:"solenoid"`
	State    string `json:"state"`
}

type valve struct {
	cfg    Config
	closed bool
}

// Bank is the set of configured valves behind one Output. It implements the
// valve driver used by the script processor.
type Bank struct {
	mu     sync.RWMutex
	out    Output
	valves map[string]*valve
	order  []string
}

// NewBank validates the valve definitions. Valves start in their default state;
// call Reset to drive the outputs there.
func NewBank(cfgs []Config, out Output) (*Bank, error) {
	b := &Bank{
		out:    out,
		valves: make(map[string]*valve, len(cfgs)),
	}
	for _, c := range cfgs {
		c.Alias = strings.ToLower(strings.TrimSpace(c.Alias))
		if c.Alias == "" || strings.ContainsAny(c.Alias, " \t#") || c.Solenoid < 0 {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidValve, c)
		}
		if _, dup := b.valves[c.Alias]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateValve, c.Alias)
		}
		b.valves[c.Alias] = &valve{cfg: c, closed: c.DefaultClosed}
		b.order = append(b.order, c.Alias)
	}
	return b, nil
}

// Aliases returns the valve aliases in configuration order.
func (b *Bank) Aliases() []string {
	return append([]string(nil), b.order...)
}

// Open opens the valve with the given alias.
func (b *Bank) Open(alias string) error { return b.set(alias, false) }

// Close closes the valve with the given alias.
func (b *Bank) Close(alias string) error { return b.set(alias, true) }

// OpenAll opens every valve and reports all failures.
func (b *Bank) OpenAll() error { return b.each(b.Open) }

// CloseAll closes every valve and reports all failures.
func (b *Bank) CloseAll() error { return b.each(b.Close) }

// Reset drives every valve to its configured default.
func (b *Bank) Reset() error {
	return b.each(func(alias string) error {
		b.mu.RLock()
		closed := b.valves[alias].cfg.DefaultClosed
		b.mu.RUnlock()
		return b.set(alias, closed)
	})
}

// States returns every valve in configuration order.
func (b *Bank) States() []ValveState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ValveState, 0, len(b.order))
	for _, alias := range b.order {
		v := b.valves[alias]
		out = append(out, ValveState{Alias: alias, Solenoid: v.cfg.Solenoid, State: stateName(v.closed)})
	}
	return out
}

// StateMap returns alias → state.
func (b *Bank) StateMap() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.valves))
	for alias, v := range b.valves {
		out[alias] = stateName(v.closed)
	}
	return out
}

// set writes the output level (inverted XOR closed) and records the state.
func (b *Bank) set(alias string, closed bool) error {
	alias = strings.ToLower(strings.TrimSpace(alias))

	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.valves[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownValve, alias)
	}
	if b.out != nil {
		if err := b.out.Write(v.cfg.Solenoid, v.cfg.Inverted != closed); err != nil {
			return fmt.Errorf("write solenoid %d for valve %q: %w", v.cfg.Solenoid, alias, err)
		}
	}
	v.closed = closed
	return nil
}

func (b *Bank) each(fn func(string) error) error {
	var errs []error
	for _, alias := range b.Aliases() {
		if err := fn(alias); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func stateName(closed bool) string {
	if closed {
		return StateClosed
	}
	return StateOpen
}

