package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/repository"
	"controlling_fluidics/internal/valves"
)

// ManualSessionID tags events caused by manual valve control.
const ManualSessionID = "manual"

// ErrUnknownValve is returned for aliases missing from the valve bank.
var ErrUnknownValve = valves.ErrUnknownValve

// ValvesService exposes the manual valve controls. Actions are recorded in
// the event log next to script runs.
type ValvesService struct {
	bank      *valves.Bank
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewValvesService(bank *valves.Bank, eventRepo repository.EventRepo, log *logger.Logger) *ValvesService {
	return &ValvesService{bank: bank, eventRepo: eventRepo, log: log.Named("valves")}
}

// List returns every valve in configuration order.
func (s *ValvesService) List() []valves.ValveState {
	return s.bank.States()
}

func (s *ValvesService) Open(ctx context.Context, alias string) error {
	if err := s.bank.Open(alias); err != nil {
		return err
	}
	s.record(ctx, "open", alias)
	return nil
}

func (s *ValvesService) Close(ctx context.Context, alias string) error {
	if err := s.bank.Close(alias); err != nil {
		return err
	}
	s.record(ctx, "close", alias)
	return nil
}

// Toggle flips one valve and returns its new state.
func (s *ValvesService) Toggle(ctx context.Context, alias string) (string, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	current, ok := s.bank.StateMap()[alias]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownValve, alias)
	}
	if current == valves.StateOpen {
		return valves.StateClosed, s.Close(ctx, alias)
	}
	return valves.StateOpen, s.Open(ctx, alias)
}

func (s *ValvesService) OpenAll(ctx context.Context) error {
	return s.bulk(ctx, "open", s.bank.OpenAll)
}

func (s *ValvesService) CloseAll(ctx context.Context) error {
	return s.bulk(ctx, "close", s.bank.CloseAll)
}

// Reset drives every valve to its configured default.
func (s *ValvesService) Reset(ctx context.Context) error {
	return s.bulk(ctx, "reset", s.bank.Reset)
}

func (s *ValvesService) bulk(ctx context.Context, action string, fn func() error) error {
	err := fn()
	if err != nil {
		s.log.Warnw("valves_bulk_partial", "action", action, "error", err)
	}
	s.record(ctx, action, "*")
	return err
}

func (s *ValvesService) record(ctx context.Context, kind, alias string) {
	if s.eventRepo == nil {
		return
	}
	ev := models.RunEvent{
		SessionID:  ManualSessionID,
		OccurredAt: time.Now().UTC(),
		Kind:       kind,
		Valve:      alias,
	}
	if err := s.eventRepo.Append(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorw("valves_record_failed", "kind", kind, "valve", alias, "error", err)
	}
}
