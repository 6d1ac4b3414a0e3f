package repository_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}

var scriptColumns = []string{"name", "body", "steps", "expected_s", "updated_at"}

func TestScriptSQLite_Save_NormalizesNameAndStampsUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewScriptSQLite(db)

	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok || tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scripts (name, body, steps, expected_s, updated_at)")).
		WithArgs("prime", "open waste\nwait 1 s", 2, 1, isUTCRecent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(context.Background(), models.StoredScript{
		Name:            "  Prime ",
		Body:            "open waste\nwait 1 s",
		Steps:           2,
		ExpectedSeconds: 1,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestScriptSQLite_Save_EmptyName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	if err := repository.NewScriptSQLite(db).Save(context.Background(), models.StoredScript{Name: "  "}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestScriptSQLite_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewScriptSQLite(db)
	updated := time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	mock.ExpectQuery(regexp.QuoteMeta("FROM scripts WHERE name=?")).
		WithArgs("flush").
		WillReturnRows(sqlmock.NewRows(scriptColumns).AddRow("flush", "open waste", 1, 0, updated))

	got, err := repo.Get(context.Background(), "FLUSH")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "flush" || got.Steps != 1 || got.Body != "open waste" {
		t.Fatalf("unexpected script: %+v", got)
	}
	if got.UpdatedAt.Location() != time.UTC || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("updated_at not normalized to UTC: %v", got.UpdatedAt)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM scripts WHERE name=?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(scriptColumns))

	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, repository.ErrScriptNotFound) {
		t.Fatalf("expected ErrScriptNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestScriptSQLite_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM scripts ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(scriptColumns).
			AddRow("a", "pause", 1, 0, now).
			AddRow("b", "wait 1 m", 1, 60, now))

	got, err := repository.NewScriptSQLite(db).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].ExpectedSeconds != 60 {
		t.Fatalf("unexpected list: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestScriptSQLite_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewScriptSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scripts WHERE name=?")).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "old"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scripts WHERE name=?")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "gone"); !errors.Is(err, repository.ErrScriptNotFound) {
		t.Fatalf("expected ErrScriptNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
