// Package stage writes record collections to intermediate files, one per
// relation, and reads them back for loading.
package stage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/wegman-software/osm2sql-go/internal/record"
)

// Supported formats
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// EmptyDatasetError is returned when a collection has no records, so no
// staged file can be produced for it
type EmptyDatasetError struct {
	Table string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("no %s records to stage", e.Table)
}

// Reader streams the rows of one staged file. Next returns io.EOF after the
// last row.
type Reader interface {
	Header() []string
	Next() ([]record.Text, error)
	Close() error
}

// rowWriter is implemented per format
type rowWriter interface {
	Write(values []record.Text) error
	Close() error
}

// Stage is a directory of staged files in one format
type Stage struct {
	dir       string
	format    string
	batchSize int
}

// New creates a stage rooted at dir, creating the directory if needed
func New(dir, format string, batchSize int) (*Stage, error) {
	switch format {
	case FormatCSV, FormatParquet:
	default:
		return nil, fmt.Errorf("unknown stage format %q", format)
	}
	if batchSize < 1 {
		batchSize = 100000
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stage directory: %w", err)
	}
	return &Stage{dir: dir, format: format, batchSize: batchSize}, nil
}

// Dir returns the stage directory
func (s *Stage) Dir() string {
	return s.dir
}

// Path returns the staged file of a table
func (s *Stage) Path(table record.Table) string {
	return filepath.Join(s.dir, table.Name+"."+s.format)
}

// Write stages rows for table, replacing any previous file. The header is
// the table's column list and rows are written in the order given.
func (s *Stage) Write(table record.Table, rows []record.Row) error {
	if len(rows) == 0 {
		return &EmptyDatasetError{Table: table.Name}
	}

	path := s.Path(table)
	tmp := path + ".tmp"

	w, err := s.newRowWriter(tmp, table)
	if err != nil {
		return err
	}
	for _, row := range rows {
		values := row.Values()
		if len(values) != len(table.Columns) {
			w.Close()
			os.Remove(tmp)
			return fmt.Errorf("%s row has %d values, want %d", table.Name, len(values), len(table.Columns))
		}
		if err := w.Write(values); err != nil {
			w.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to write %s: %w", table.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finish %s: %w", table.Name, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// WriteAll stages every table of ds in load order. The first failure,
// including an empty collection, stops staging.
func (s *Stage) WriteAll(ds *record.Dataset) error {
	for _, table := range record.Tables {
		if err := s.Write(table, ds.Rows(table)); err != nil {
			return err
		}
	}
	return nil
}

// Open opens the staged file of table for reading and checks that its header
// matches the table layout
func (s *Stage) Open(table record.Table) (Reader, error) {
	path := s.Path(table)

	var r Reader
	var err error
	switch s.format {
	case FormatParquet:
		r, err = openParquet(path, table)
	default:
		r, err = openCSV(path, table)
	}
	if err != nil {
		return nil, err
	}

	if header := r.Header(); !slices.Equal(header, table.ColumnNames()) {
		r.Close()
		return nil, fmt.Errorf("staged file %s has header %v, want %v", path, header, table.ColumnNames())
	}
	return r, nil
}

// Count reads a staged file to the end and returns its row count
func (s *Stage) Count(table record.Table) (int64, error) {
	r, err := s.Open(table)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var n int64
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

func (s *Stage) newRowWriter(path string, table record.Table) (rowWriter, error) {
	if s.format == FormatParquet {
		return newParquetWriter(path, table, s.batchSize)
	}
	return newCSVWriter(path, table)
}
