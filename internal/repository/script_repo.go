package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_fluidics/internal/models"
)

type ScriptSQLite struct {
	db *sql.DB
}

func NewScriptSQLite(db *sql.DB) *ScriptSQLite {
	return &ScriptSQLite{db: db}
}

const (
	upsertScriptSQL = `
		INSERT INTO scripts (name, body, steps, expected_s, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body=excluded.body,
			steps=excluded.steps,
			expected_s=excluded.expected_s,
			updated_at=excluded.updated_at
	`

	selectScriptSQL = `
		SELECT name, body, steps, expected_s, updated_at
		FROM scripts WHERE name=?
	`

	listScriptsSQL = `
		SELECT name, body, steps, expected_s, updated_at
		FROM scripts ORDER BY name ASC
	`

	deleteScriptSQL = `DELETE FROM scripts WHERE name=?`
)

// NormalizeScriptName trims and lower-cases a script name.
func NormalizeScriptName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Save inserts or replaces the script stored under s.Name.
func (r *ScriptSQLite) Save(ctx context.Context, s models.StoredScript) error {
	name := NormalizeScriptName(s.Name)
	if name == "" {
		return errors.New("script name is empty")
	}

	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	if _, err := r.db.ExecContext(ctx, upsertScriptSQL, name, s.Body, s.Steps, s.ExpectedSeconds, ts); err != nil {
		return fmt.Errorf("save script %q: %w", name, err)
	}
	return nil
}

// Get returns ErrScriptNotFound when the name is unknown.
func (r *ScriptSQLite) Get(ctx context.Context, name string) (models.StoredScript, error) {
	name = NormalizeScriptName(name)
	row := r.db.QueryRowContext(ctx, selectScriptSQL, name)

	var s models.StoredScript
	if err := row.Scan(&s.Name, &s.Body, &s.Steps, &s.ExpectedSeconds, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StoredScript{}, fmt.Errorf("%w: %q", ErrScriptNotFound, name)
		}
		return models.StoredScript{}, fmt.Errorf("load script %q: %w", name, err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

// List returns every stored script ordered by name.
func (r *ScriptSQLite) List(ctx context.Context) ([]models.StoredScript, error) {
	rows, err := r.db.QueryContext(ctx, listScriptsSQL)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	out := make([]models.StoredScript, 0, 16)
	for rows.Next() {
		var s models.StoredScript
		if err := rows.Scan(&s.Name, &s.Body, &s.Steps, &s.ExpectedSeconds, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a stored script; ErrScriptNotFound if nothing was removed.
func (r *ScriptSQLite) Delete(ctx context.Context, name string) error {
	name = NormalizeScriptName(name)
	res, err := r.db.ExecContext(ctx, deleteScriptSQL, name)
	if err != nil {
		return fmt.Errorf("delete script %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete script %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}
	return nil
}
