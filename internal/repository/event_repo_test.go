package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"controlling_fluidics/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var eventColumns = []string{"id", "session_id", "occurred_at", "kind", "valve", "state", "value"}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newEventMock(t *testing.T) (*EventSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewEventSQLite(db), mock
}

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertRunEventSQL)).
		WithArgs(sqlmock.AnyArg(), "sess-1", sqlmock.AnyArg(), "open",
			"waste",
			nil,
			0,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.RunEvent{
		SessionID: "sess-1",
		Kind:      " OPEN ",
		Valve:     "waste",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectExec("INSERT INTO run_events").
		WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.RunEvent{Kind: "t_e", Value: 61})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
}

func TestList_NoFilters(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	rows := sqlmock.NewRows(eventColumns).
		AddRow("1", "s", "2025-01-01 10:00:00.000", "open", "waste", nil, 0).
		AddRow("2", "s", "2025-01-01 10:00:01.250", "state", nil, "running", 0)

	mock.ExpectQuery(regexp.QuoteMeta(selectRunEventsSQL + " ORDER BY occurred_at ASC")).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), models.EventFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if got[0].Valve != "waste" || got[0].State != "" {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	want := time.Date(2025, 1, 1, 10, 0, 1, 250_000_000, time.UTC)
	if !got[1].OccurredAt.Equal(want) || got[1].State != "running" {
		t.Fatalf("unexpected second event: %+v", got[1])
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := selectRunEventsSQL + ` WHERE occurred_at >= ? AND occurred_at <= ? AND kind = ? AND session_id = ? ORDER BY occurred_at ASC LIMIT ?`

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00.000", "2025-01-01 12:00:00.000", "pump", "abc", 10).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("9", "abc", "2025-01-01 11:30:00.000", "pump", nil, nil, 25))

	got, err := repo.List(ctx(t), models.EventFilter{From: from, To: to, Kind: " PUMP ", SessionID: "abc", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Value != 25 {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestList_BadTimestamp(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT id, session_id").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("x", "s", "yesterday", "open", "a", nil, 0))

	if _, err := repo.List(ctx(t), models.EventFilter{}); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}
