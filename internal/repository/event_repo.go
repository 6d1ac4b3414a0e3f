package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"controlling_fluidics/internal/models"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const (
	insertRunEventSQL = `
		INSERT INTO run_events (id, session_id, occurred_at, kind, valve, state, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	selectRunEventsSQL = `SELECT id, session_id, occurred_at, kind, valve, state, value FROM run_events`

	sqliteTimestampLayout = "2006-01-02 15:04:05.000"
)

// Append inserts a new event. If EventID or OccurredAt are empty, they're set.
func (r *EventSQLite) Append(ctx context.Context, e models.RunEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertRunEventSQL,
		e.EventID,
		e.SessionID,
		e.OccurredAt.UTC().Format(sqliteTimestampLayout),
		strings.ToLower(strings.TrimSpace(e.Kind)),
		nullString(e.Valve),
		nullString(e.State),
		e.Value,
	)
	if err != nil {
		return fmt.Errorf("append run event %s: %w", e.Kind, err)
	}
	return nil
}

// List returns events filtered by [From, To] (inclusive), kind and session,
// ordered oldest first.
func (r *EventSQLite) List(ctx context.Context, f models.EventFilter) ([]models.RunEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC().Format(sqliteTimestampLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC().Format(sqliteTimestampLayout))
	}
	if kind := strings.ToLower(strings.TrimSpace(f.Kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}
	if f.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, f.SessionID)
	}

	q := selectRunEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunEvent, 0, 64)
	for rows.Next() {
		var (
			ev           models.RunEvent
			occurred     string
			valve, state sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.SessionID, &occurred, &ev.Kind, &valve, &state, &ev.Value); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		ts, err := time.ParseInLocation(sqliteTimestampLayout, occurred, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", occurred, err)
		}
		ev.OccurredAt = ts
		ev.Valve = valve.String
		ev.State = state.String
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
