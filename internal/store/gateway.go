// Package store implements the persistence gateway: it owns all SQL access
// to the per-device telemetry tables and the unit-of-work discipline around
// each statement.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Column is one column definition, in creation order.
type Column struct {
	Name string
	Type string
}

// ColumnValue is one column's value for an insert, in statement order.
type ColumnValue struct {
	Name  string
	Value any
}

// Gateway wraps the shared *sql.DB handle. Every mutating operation runs as
// a single unit of work: begin, execute, commit on success, roll back on any
// failure. A transaction is never held open across operations.
type Gateway struct {
	db *sql.DB
}

// NewGateway creates a Gateway around an established connection pool.
func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

// withTx runs fn inside a transaction scoped to this call. The deferred
// rollback is a no-op after a successful commit, so exactly one of the two
// ever takes effect for a given statement.
func (g *Gateway) withTx(ctx context.Context, op, table string, fn func(tx *sql.Tx) error) error {
	if g.db == nil {
		return ErrNotConnected
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return &StatementError{Op: op, Table: table, Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StatementError{Op: op, Table: table, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// TableExists reports whether a table with the given name exists.
func (g *Gateway) TableExists(ctx context.Context, name string) (bool, error) {
	if g.db == nil {
		return false, ErrNotConnected
	}
	if err := CheckIdentifier(name); err != nil {
		return false, err
	}

	var exists bool
	if err := g.db.QueryRowContext(ctx, queryTableExists, name).Scan(&exists); err != nil {
		return false, &StatementError{Op: "table exists", Table: name, Err: err}
	}
	return exists, nil
}

// CreateTable creates the table with the given ordered column set. The
// statement is create-if-absent, so repeating it for an existing table of
// the same shape is harmless; an incompatible pre-existing object still
// surfaces as a StatementError.
func (g *Gateway) CreateTable(ctx context.Context, name string, columns []Column) error {
	if err := CheckIdentifier(name); err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("store: create table %s: no columns", name)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		if err := CheckIdentifier(col.Name); err != nil {
			return err
		}
		if err := checkTypeTag(col.Type); err != nil {
			return err
		}
		defs[i] = col.Name + " " + col.Type
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))

	return g.withTx(ctx, "create table", name, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &StatementError{Op: "create table", Table: name, Err: err}
		}
		return nil
	})
}

// InsertRow inserts one row with the given ordered column values as a single
// atomic unit of work.
func (g *Gateway) InsertRow(ctx context.Context, name string, values []ColumnValue) error {
	if err := CheckIdentifier(name); err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("store: insert into %s: no values", name)
	}

	cols := make([]string, len(values))
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, cv := range values {
		if err := CheckIdentifier(cv.Name); err != nil {
			return err
		}
		cols[i] = cv.Name
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = cv.Value
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	return g.withTx(ctx, "insert", name, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return &StatementError{Op: "insert", Table: name, Err: err}
		}
		return nil
	})
}

// ColumnValueExists reports whether any row of the table holds the given
// value in the given column.
func (g *Gateway) ColumnValueExists(ctx context.Context, name, column string, value any) (bool, error) {
	if g.db == nil {
		return false, ErrNotConnected
	}
	if err := CheckIdentifier(name); err != nil {
		return false, err
	}
	if err := CheckIdentifier(column); err != nil {
		return false, err
	}

	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", name, column)

	var count int
	if err := g.db.QueryRowContext(ctx, stmt, value).Scan(&count); err != nil {
		return false, &StatementError{Op: "column value exists", Table: name, Err: err}
	}
	return count > 0, nil
}
