package sessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"cv-optimizer/internal/shared/apperr"
)

func newPGStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGStore{DB: db}, mock
}

func TestPGStoreCreate(t *testing.T) {
	store, mock := newPGStore(t)
	now := time.Now().UTC()
	sess := Session{ID: "s-1", Status: StatusEmpty, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("s-1", "empty", sqlmock.AnyArg(), now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreGetDecodesState(t *testing.T) {
	store, mock := newPGStore(t)
	state, err := encodeState(Session{ID: "s-1", Status: StatusAnalyzed, JobDescription: "Senior Go engineer"})
	if err != nil {
		t.Fatalf("encodeState: %v", err)
	}

	mock.ExpectQuery("SELECT state FROM sessions").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(state))

	got, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusAnalyzed || got.JobDescription != "Senior Go engineer" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestPGStoreGetMissing(t *testing.T) {
	store, mock := newPGStore(t)
	mock.ExpectQuery("SELECT state FROM sessions").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreUpdateNoRowsIsNotFound(t *testing.T) {
	store, mock := newPGStore(t)
	mock.ExpectExec("UPDATE sessions").
		WithArgs("ghost", "generated", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), Session{ID: "ghost", Status: StatusGenerated})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreUpdateDriverErrorIsStorage(t *testing.T) {
	store, mock := newPGStore(t)
	mock.ExpectExec("UPDATE sessions").
		WillReturnError(errors.New("connection reset"))

	err := store.Update(context.Background(), Session{ID: "s-1"})
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestPGStoreDeleteAndPurge(t *testing.T) {
	store, mock := newPGStore(t)
	before := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM sessions WHERE id").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("DELETE FROM sessions WHERE updated_at").
		WithArgs(before).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("old-1").AddRow("old-2"))

	if err := store.Delete(context.Background(), "s-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, err := store.PurgeExpired(context.Background(), before)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if len(ids) != 2 || ids[0] != "old-1" || ids[1] != "old-2" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
