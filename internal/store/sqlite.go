package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite opens connections to a SQLite database file
type SQLite struct {
	path string
	dsn  string
}

// NewSQLite creates an opener for the database at path using dsn
func NewSQLite(path, dsn string) *SQLite {
	if dsn == "" {
		dsn = path + "?mode=rwc"
	}
	return &SQLite{path: path, dsn: dsn}
}

// Driver returns the driver name
func (s *SQLite) Driver() string {
	return "sqlite"
}

// Open opens the database, creating its directory if needed
func (s *SQLite) Open(ctx context.Context) (Conn, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &sqliteConn{db: db}, nil
}

type sqliteConn struct {
	db    *sql.DB
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

func (c *sqliteConn) begin(ctx context.Context) error {
	if c.tx != nil {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	c.stmts = make(map[string]*sql.Stmt)
	return nil
}

// Exec runs stmt inside the open transaction. Statements are prepared once
// per transaction.
func (c *sqliteConn) Exec(ctx context.Context, stmt string, args ...any) error {
	if err := c.begin(ctx); err != nil {
		return err
	}
	if len(args) == 0 {
		_, err := c.tx.ExecContext(ctx, stmt)
		return err
	}

	prepared, ok := c.stmts[stmt]
	if !ok {
		var err error
		prepared, err = c.tx.PrepareContext(ctx, stmt)
		if err != nil {
			return err
		}
		c.stmts[stmt] = prepared
	}
	_, err := prepared.ExecContext(ctx, args...)
	return err
}

func (c *sqliteConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	// Commit also closes the statements prepared on the transaction
	err := c.tx.Commit()
	c.tx = nil
	c.stmts = nil
	return err
}

func (c *sqliteConn) Close(ctx context.Context) error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
		c.stmts = nil
	}
	return c.db.Close()
}

func (c *sqliteConn) Placeholder(int) string {
	return "?"
}
