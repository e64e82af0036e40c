package store_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/StatikElektrik/microservices/internal/store"
)

func newMockGateway(t *testing.T) (*store.Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewGateway(db), mock
}

const existsQuery = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`

func TestTableExists(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("device_engine_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := gw.TableExists(context.Background(), "device_engine_1")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !exists {
		t.Error("expected table to exist")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTableExists_Absent(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("device_unknown").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := gw.TableExists(context.Background(), "device_unknown")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if exists {
		t.Error("expected table to be absent")
	}
}

func TestCreateTable(t *testing.T) {
	gw, mock := newMockGateway(t)

	expected := regexp.QuoteMeta(
		"CREATE TABLE IF NOT EXISTS device_engine_1 (battery_percentage FLOAT, battery_timestamp BIGINT)")
	mock.ExpectBegin()
	mock.ExpectExec(expected).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := gw.CreateTable(context.Background(), "device_engine_1", []store.Column{
		{Name: "battery_percentage", Type: "FLOAT"},
		{Name: "battery_timestamp", Type: "BIGINT"},
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTable_RejectedRollsBack(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS device_engine_1").
		WillReturnError(errors.New("permission denied for schema public"))
	mock.ExpectRollback()

	err := gw.CreateTable(context.Background(), "device_engine_1", []store.Column{
		{Name: "battery_percentage", Type: "FLOAT"},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var stmtErr *store.StatementError
	if !errors.As(err, &stmtErr) {
		t.Fatalf("expected *StatementError, got %T", err)
	}
	if stmtErr.Table != "device_engine_1" {
		t.Errorf("expected table device_engine_1, got %q", stmtErr.Table)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("rollback not issued: %v", err)
	}
}

func TestCreateTable_BadIdentifier(t *testing.T) {
	gw, _ := newMockGateway(t)

	err := gw.CreateTable(context.Background(), "device_x; DROP TABLE users", []store.Column{
		{Name: "battery_percentage", Type: "FLOAT"},
	})
	if err == nil {
		t.Fatal("expected identifier error")
	}
}

func TestCreateTable_BadTypeTag(t *testing.T) {
	gw, _ := newMockGateway(t)

	err := gw.CreateTable(context.Background(), "device_x", []store.Column{
		{Name: "battery_percentage", Type: "FLOAT); DROP TABLE users; --"},
	})
	if err == nil {
		t.Fatal("expected type tag error")
	}
}

func TestInsertRow(t *testing.T) {
	gw, mock := newMockGateway(t)

	expected := regexp.QuoteMeta(
		"INSERT INTO device_engine_1 (battery_percentage, battery_timestamp) VALUES ($1, $2)")
	mock.ExpectBegin()
	mock.ExpectExec(expected).
		WithArgs(87.0, int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := gw.InsertRow(context.Background(), "device_engine_1", []store.ColumnValue{
		{Name: "battery_percentage", Value: 87.0},
		{Name: "battery_timestamp", Value: int64(1700000000)},
	})
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertRow_FailureRollsBackNotCommits(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO device_engine_1").
		WillReturnError(errors.New("value too long for type"))
	mock.ExpectRollback()

	err := gw.InsertRow(context.Background(), "device_engine_1", []store.ColumnValue{
		{Name: "battery_percentage", Value: 87.0},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var stmtErr *store.StatementError
	if !errors.As(err, &stmtErr) {
		t.Fatalf("expected *StatementError, got %T", err)
	}
	// A commit after the failed exec would show up as an unmet/unexpected
	// call here; the failed unit of work must only roll back.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected transaction outcome: %v", err)
	}
}

func TestGateway_NotConnected(t *testing.T) {
	gw := store.NewGateway(nil)
	ctx := context.Background()

	if _, err := gw.TableExists(ctx, "device_x"); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("TableExists: expected ErrNotConnected, got %v", err)
	}
	if err := gw.CreateTable(ctx, "device_x", []store.Column{{Name: "c", Type: "INT"}}); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("CreateTable: expected ErrNotConnected, got %v", err)
	}
	if err := gw.InsertRow(ctx, "device_x", []store.ColumnValue{{Name: "c", Value: 1}}); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("InsertRow: expected ErrNotConnected, got %v", err)
	}
	if _, err := gw.ColumnValueExists(ctx, "device_x", "c", 1); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("ColumnValueExists: expected ErrNotConnected, got %v", err)
	}
}

func TestColumnValueExists(t *testing.T) {
	gw, mock := newMockGateway(t)

	expected := regexp.QuoteMeta("SELECT COUNT(*) FROM device_engine_1 WHERE battery_timestamp = $1")
	mock.ExpectQuery(expected).
		WithArgs(int64(1700000000)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	found, err := gw.ColumnValueExists(context.Background(), "device_engine_1", "battery_timestamp", int64(1700000000))
	if err != nil {
		t.Fatalf("ColumnValueExists: %v", err)
	}
	if !found {
		t.Error("expected value to exist")
	}
}
