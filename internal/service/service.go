package service

import (
	"context"

	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/repository"
	"controlling_fluidics/internal/script"
	"controlling_fluidics/internal/sequencer"
	"controlling_fluidics/internal/valves"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Valves exposes manual valve control.
type Valves interface {
	List() []valves.ValveState
	Open(ctx context.Context, alias string) error
	Close(ctx context.Context, alias string) error
	Toggle(ctx context.Context, alias string) (string, error)
	OpenAll(ctx context.Context) error
	CloseAll(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Scripts validates and stores named scripts.
type Scripts interface {
	Validate(text string) (ScriptSummary, error)
	Save(ctx context.Context, name, text string) (models.StoredScript, error)
	Get(ctx context.Context, name string) (models.StoredScript, error)
	List(ctx context.Context) ([]models.StoredScript, error)
	Delete(ctx context.Context, name string) error
}

// Runner controls the single script session.
type Runner interface {
	Load(ctx context.Context, p LoadParams) (models.RunStatus, error)
	Signal(ctx context.Context, sig sequencer.Signal) (models.RunStatus, error)
	Unload(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Status() models.RunStatus
}

// EventLog exposes the persisted run events with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RunEvent, error)
}

// Service aggregates all sub-services. Methods with the same name on
// different sub-services must be called through the field.
type Service struct {
	Valves
	Scripts
	Runner
	EventLog
	Authorization
}

// Deps are the collaborators built from configuration in cmd.
type Deps struct {
	Bank      *valves.Bank
	Telemetry *TelemetryService
	Runner    RunnerConfig
	Auth      AuthConfig
	Logger    *logger.Logger
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	scripts := NewScriptsService(repos.ScriptRepo, script.NewValveSet(deps.Bank.Aliases()...))
	return &Service{
		Valves:        NewValvesService(deps.Bank, repos.EventRepo, deps.Logger),
		Scripts:       scripts,
		Runner:        NewRunnerService(scripts, deps.Bank, deps.Bank, deps.Telemetry, deps.Runner, deps.Logger),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, deps.Auth),
	}
}
