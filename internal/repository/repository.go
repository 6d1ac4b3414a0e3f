package repository

import (
	"context"
	"database/sql"
	"errors"

	"controlling_fluidics/internal/models"
)

// ErrScriptNotFound is returned when no script is stored under a name.
var ErrScriptNotFound = errors.New("script not found")

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type ScriptRepo interface {
	Save(ctx context.Context, s models.StoredScript) error
	Get(ctx context.Context, name string) (models.StoredScript, error)
	List(ctx context.Context) ([]models.StoredScript, error)
	Delete(ctx context.Context, name string) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.RunEvent) error
	List(ctx context.Context, f models.EventFilter) ([]models.RunEvent, error)
}

type Repository struct {
	ScriptRepo ScriptRepo
	EventRepo  EventRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		ScriptRepo: NewScriptSQLite(db),
		EventRepo:  NewEventSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
