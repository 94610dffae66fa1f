package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2sql-go/internal/record"
	"github.com/wegman-software/osm2sql-go/internal/stage"
	"github.com/wegman-software/osm2sql-go/internal/store"
)

// TableStats holds the rows loaded into one relation
type TableStats struct {
	Table      string
	RowsLoaded int64
	Duration   time.Duration
}

// Stats holds loader statistics in load order
type Stats struct {
	Tables     []TableStats
	RowsLoaded int64
}

// Rows returns the rows loaded into table
func (s *Stats) Rows(table string) int64 {
	for _, t := range s.Tables {
		if t.Table == table {
			return t.RowsLoaded
		}
	}
	return 0
}

// Loader clears the target relations and fills them from staged files
type Loader struct {
	opener store.Opener
	stage  *stage.Stage
	log    *zap.Logger
}

// NewLoader creates a loader reading staged files from st
func NewLoader(opener store.Opener, st *stage.Stage, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{opener: opener, stage: st, log: log}
}

// ClearAll deletes every row of every relation using one connection.
// Relations are cleared in reverse load order so that rows referencing
// nodes and ways go first.
func (l *Loader) ClearAll(ctx context.Context) error {
	conn, err := l.opener.Open(ctx)
	if err != nil {
		return &store.StoreError{Op: "open", Err: err}
	}
	defer conn.Close(ctx)

	for i := len(record.Tables) - 1; i >= 0; i-- {
		table := record.Tables[i].Name
		if err := conn.Exec(ctx, "DELETE FROM "+store.QuoteIdent(table)); err != nil {
			return &store.StoreError{Op: "clear", Table: table, Err: err}
		}
		l.log.Debug("Cleared table", zap.String("table", table))
	}

	if err := conn.Commit(ctx); err != nil {
		return &store.StoreError{Op: "commit", Err: err}
	}
	return nil
}

// LoadAll loads every staged file into its relation in load order. A failure
// stops loading; relations loaded before it keep their rows.
func (l *Loader) LoadAll(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	for _, table := range record.Tables {
		start := time.Now()
		l.log.Info("Loading table", zap.String("table", table.Name))

		count, err := l.loadTable(ctx, table)
		if err != nil {
			return stats, err
		}

		ts := TableStats{Table: table.Name, RowsLoaded: count, Duration: time.Since(start)}
		stats.Tables = append(stats.Tables, ts)
		stats.RowsLoaded += count
		l.log.Info("Table loaded",
			zap.String("table", table.Name),
			zap.Int64("rows", count),
			zap.Duration("duration", ts.Duration.Round(time.Millisecond)))
	}

	return stats, nil
}

// loadTable loads one staged file on its own connection
func (l *Loader) loadTable(ctx context.Context, table record.Table) (int64, error) {
	reader, err := l.stage.Open(table)
	if err != nil {
		return 0, fmt.Errorf("failed to open staged %s: %w", table.Name, err)
	}
	defer reader.Close()

	conn, err := l.opener.Open(ctx)
	if err != nil {
		return 0, &store.StoreError{Op: "open", Table: table.Name, Err: err}
	}
	defer conn.Close(ctx)

	columns := reader.Header()

	var count int64
	if copier, ok := conn.(store.Copier); ok {
		src := &rowSource{reader: reader}
		count, err = copier.CopyFrom(ctx, table.Name, columns, src)
		if src.err != nil {
			return 0, fmt.Errorf("failed to read staged %s: %w", table.Name, src.err)
		}
		if err != nil {
			return 0, &store.StoreError{Op: "copy", Table: table.Name, Err: err}
		}
	} else {
		count, err = insertRows(ctx, conn, table.Name, columns, reader)
		if err != nil {
			return 0, err
		}
	}

	if err := conn.Commit(ctx); err != nil {
		return 0, &store.StoreError{Op: "commit", Table: table.Name, Err: err}
	}
	return count, nil
}

// insertRows inserts every row of reader with a parameterized statement, in
// file order
func insertRows(ctx context.Context, conn store.Conn, table string, columns []string, reader stage.Reader) (int64, error) {
	stmt := store.InsertStatement(conn, table, columns)
	args := make([]any, len(columns))

	var count int64
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read staged %s row %d: %w", table, count+1, err)
		}

		for i, v := range row {
			args[i] = v.Value()
		}
		if err := conn.Exec(ctx, stmt, args...); err != nil {
			return count, &store.StoreError{Op: "insert", Table: table, Err: fmt.Errorf("row %d: %w", count+1, err)}
		}
		count++
	}
}

// rowSource implements store.RowSource over a staged file
type rowSource struct {
	reader  stage.Reader
	current []any
	err     error
}

func (r *rowSource) Next() bool {
	row, err := r.reader.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			r.err = err
		}
		return false
	}
	if r.current == nil {
		r.current = make([]any, len(row))
	}
	for i, v := range row {
		r.current[i] = v.Value()
	}
	return true
}

func (r *rowSource) Values() ([]any, error) {
	return r.current, nil
}

func (r *rowSource) Err() error {
	return r.err
}
