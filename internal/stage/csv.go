package stage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/wegman-software/osm2sql-go/internal/record"
)

// nullMarker stands for null in nullable columns. A nullable value that
// starts with a backslash gets one more so it cannot be taken for the marker.
const nullMarker = `\N`

func encodeCell(v record.Text, nullable bool) string {
	switch {
	case !nullable:
		return v.String
	case !v.Valid:
		return nullMarker
	case strings.HasPrefix(v.String, `\`):
		return `\` + v.String
	}
	return v.String
}

func decodeCell(cell string, nullable bool) record.Text {
	switch {
	case !nullable:
		return record.Str(cell)
	case cell == nullMarker:
		return record.Text{}
	case strings.HasPrefix(cell, `\`):
		return record.Str(cell[1:])
	}
	return record.Str(cell)
}

// csvWriter writes RFC 4180 CSV with a header row. Nullable columns carry
// nullMarker for null, so an empty cell is always an empty string.
type csvWriter struct {
	file     *os.File
	buf      *bufio.Writer
	writer   *csv.Writer
	row      []string
	nullable []bool
}

func newCSVWriter(path string, table record.Table) (*csvWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(f, 1<<20)
	w := csv.NewWriter(buf)
	if err := w.Write(table.ColumnNames()); err != nil {
		f.Close()
		return nil, err
	}
	nullable := make([]bool, len(table.Columns))
	for i, c := range table.Columns {
		nullable[i] = c.Nullable
	}
	return &csvWriter{
		file:     f,
		buf:      buf,
		writer:   w,
		row:      make([]string, len(table.Columns)),
		nullable: nullable,
	}, nil
}

func (w *csvWriter) Write(values []record.Text) error {
	for i, v := range values {
		w.row[i] = encodeCell(v, w.nullable[i])
	}
	return w.writer.Write(w.row)
}

func (w *csvWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// csvReader reads a staged CSV file, decoding nullMarker in nullable
// columns back to null.
type csvReader struct {
	file     *os.File
	reader   *csv.Reader
	header   []string
	nullable []bool
}

func openCSV(path string, table record.Table) (*csvReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	nullable := make([]bool, len(header))
	for i, name := range header {
		if idx := table.Index(name); idx >= 0 {
			nullable[i] = table.Columns[idx].Nullable
		}
	}

	return &csvReader{file: f, reader: r, header: header, nullable: nullable}, nil
}

func (r *csvReader) Header() []string {
	return r.header
}

func (r *csvReader) Next() ([]record.Text, error) {
	fields, err := r.reader.Read()
	if err != nil {
		return nil, err
	}
	values := make([]record.Text, len(fields))
	for i, f := range fields {
		values[i] = decodeCell(f, r.nullable[i])
	}
	return values, nil
}

func (r *csvReader) Close() error {
	return r.file.Close()
}
