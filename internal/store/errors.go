package store

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrNotConnected is returned when an operation is invoked on a gateway with
// no established database connection. It is fatal for a whole sync cycle.
var ErrNotConnected = errors.New("store: no database connection")

// StatementError wraps a database-level failure of a specific statement.
// The enclosing unit of work has already been rolled back when it surfaces.
type StatementError struct {
	Op    string
	Table string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Table and column names are spliced into SQL text, so they are restricted
// to lowercase snake case. Values always go through bind parameters.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CheckIdentifier validates a table or column name.
func CheckIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("store: invalid identifier %q", name)
	}
	return nil
}

// Allowed column type tags for CreateTable.
var typeTags = map[string]bool{
	"FLOAT":  true,
	"BIGINT": true,
	"INT":    true,
	"TEXT":   true,
}

func checkTypeTag(tag string) error {
	if !typeTags[tag] {
		return fmt.Errorf("store: unsupported column type %q", tag)
	}
	return nil
}
