// Package store is the connection layer to the target relational store.
//
// A Conn is opened for one bounded unit of work, used, committed and closed.
// Work not committed when a Conn is closed is rolled back.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/wegman-software/osm2sql-go/internal/config"
)

// Conn is a connection with an implicit open transaction
type Conn interface {
	// Exec runs one statement with positional parameters
	Exec(ctx context.Context, stmt string, args ...any) error
	// Commit makes the work so far durable; later Execs start a new
	// transaction
	Commit(ctx context.Context) error
	// Close rolls back uncommitted work and releases the connection
	Close(ctx context.Context) error
	// Placeholder returns the parameter marker for the n-th (1-based)
	// positional argument
	Placeholder(n int) string
}

// RowSource feeds rows to a bulk copy. It matches pgx.CopyFromSource.
type RowSource interface {
	Next() bool
	Values() ([]any, error)
	Err() error
}

// Copier is implemented by connections with a bulk load path faster than
// row-by-row inserts
type Copier interface {
	CopyFrom(ctx context.Context, table string, columns []string, rows RowSource) (int64, error)
}

// Opener opens connections to one configured store
type Opener interface {
	Open(ctx context.Context) (Conn, error)
	Driver() string
}

// NewOpener returns the opener for the configured driver
func NewOpener(cfg *config.Config) (Opener, error) {
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		return NewSQLite(cfg.DB.Path, cfg.SQLiteDSN()), nil
	case config.DriverPostgres:
		return NewPostgres(cfg.ConnectionString()), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DB.Driver)
}

// StoreError wraps a failure executing a statement against the store
type StoreError struct {
	Op    string // "open", "clear", "insert", "copy", "commit", "schema"
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// QuoteIdent quotes an identifier for both SQLite and PostgreSQL. Column
// names such as "user" are reserved words in PostgreSQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// InsertStatement builds a parameterized insert for table and columns
func InsertStatement(conn Conn, table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(QuoteIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(c))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(conn.Placeholder(i + 1))
	}
	b.WriteString(")")
	return b.String()
}
