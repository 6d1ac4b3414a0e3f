package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/repository"
	"controlling_fluidics/internal/script"
)

// ErrScriptNotFound is returned when no script is stored under a name.
var ErrScriptNotFound = repository.ErrScriptNotFound

var (
	errInvalidScriptName = fmt.Errorf("%w: script name may use letters, digits, '-', '_' or '.'", ErrInvalidRequest)
	errLoadAmbiguous     = fmt.Errorf("%w: give either a script name or script text, not both", ErrInvalidRequest)
	errLoadEmpty         = fmt.Errorf("%w: script name or text is required", ErrInvalidRequest)
)

// ScriptsService validates scripts against the configured valves and stores them.
type ScriptsService struct {
	scriptRepo repository.ScriptRepo
	valves     script.ValveSet
}

func NewScriptsService(scriptRepo repository.ScriptRepo, valves script.ValveSet) *ScriptsService {
	return &ScriptsService{scriptRepo: scriptRepo, valves: valves}
}

// Validate parses text and returns its steps. Syntax problems come back as
// *script.SyntaxError.
func (s *ScriptsService) Validate(text string) (ScriptSummary, error) {
	sc, err := script.Parse(text, s.valves)
	if err != nil {
		return ScriptSummary{}, err
	}
	return ScriptSummary{Steps: sc.Steps(), ExpectedSeconds: sc.ExpectedSeconds}, nil
}

// Save validates and stores a script. Invalid scripts are never stored.
func (s *ScriptsService) Save(ctx context.Context, name, text string) (models.StoredScript, error) {
	name = repository.NormalizeScriptName(name)
	if !validScriptName(name) {
		return models.StoredScript{}, errInvalidScriptName
	}
	sc, err := script.Parse(text, s.valves)
	if err != nil {
		return models.StoredScript{}, err
	}

	stored := models.StoredScript{
		Name:            name,
		Body:            text,
		Steps:           sc.Len(),
		ExpectedSeconds: sc.ExpectedSeconds,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := s.scriptRepo.Save(ctx, stored); err != nil {
		return models.StoredScript{}, err
	}
	return stored, nil
}

func (s *ScriptsService) Get(ctx context.Context, name string) (models.StoredScript, error) {
	return s.scriptRepo.Get(ctx, name)
}

func (s *ScriptsService) List(ctx context.Context) ([]models.StoredScript, error) {
	return s.scriptRepo.List(ctx)
}

func (s *ScriptsService) Delete(ctx context.Context, name string) error {
	return s.scriptRepo.Delete(ctx, name)
}

// Resolve returns the parsed script for p along with a display name.
func (s *ScriptsService) Resolve(ctx context.Context, p LoadParams) (script.Script, string, error) {
	switch {
	case strings.TrimSpace(p.Name) != "" && p.Text != "":
		return script.Script{}, "", errLoadAmbiguous
	case strings.TrimSpace(p.Name) != "":
		stored, err := s.scriptRepo.Get(ctx, p.Name)
		if err != nil {
			return script.Script{}, "", err
		}
		sc, err := script.Parse(stored.Body, s.valves)
		if err != nil {
			return script.Script{}, "", fmt.Errorf("stored script %q no longer parses: %w", stored.Name, err)
		}
		return sc, stored.Name, nil
	case p.Text != "":
		sc, err := script.Parse(p.Text, s.valves)
		return sc, "", err
	default:
		return script.Script{}, "", errLoadEmpty
	}
}

func validScriptName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
