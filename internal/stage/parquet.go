package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/wegman-software/osm2sql-go/internal/record"
)

// tableSchema maps every column to a nullable UTF-8 string
func tableSchema(table record.Table) *arrow.Schema {
	fields := make([]arrow.Field, len(table.Columns))
	for i, c := range table.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// parquetWriter writes rows to Parquet in row groups of batchSize rows
type parquetWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	columns   []*array.StringBuilder
	batchSize int
	count     int
}

func newParquetWriter(path string, table record.Table, batchSize int) (*parquetWriter, error) {
	schema := tableSchema(table)

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)

	writer, err := pqarrow.NewFileWriter(schema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, err
	}

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	columns := make([]*array.StringBuilder, len(table.Columns))
	for i := range columns {
		columns[i] = builder.Field(i).(*array.StringBuilder)
	}

	return &parquetWriter{
		file:      f,
		writer:    writer,
		builder:   builder,
		columns:   columns,
		batchSize: batchSize,
	}, nil
}

func (w *parquetWriter) Write(values []record.Text) error {
	for i, v := range values {
		if v.Valid {
			w.columns[i].Append(v.String)
		} else {
			w.columns[i].AppendNull()
		}
	}

	w.count++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

func (w *parquetWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

func (w *parquetWriter) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		w.writer.Close()
		w.file.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	// The Parquet writer may already have closed the file
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// parquetReader streams a staged Parquet file record batch by record batch
type parquetReader struct {
	file    *os.File
	pf      *file.Reader
	records pqarrow.RecordReader
	header  []string

	current arrow.Record
	columns []*array.String
	row     int
}

func openParquet(path string, table record.Table) (*parquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}

	pf, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, memory.DefaultAllocator)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("failed to read parquet schema: %w", err)
	}
	header := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		header[i] = field.Name
	}

	records, err := arrowReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		pf.Close()
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}

	return &parquetReader{file: f, pf: pf, records: records, header: header}, nil
}

func (r *parquetReader) Header() []string {
	return r.header
}

func (r *parquetReader) Next() ([]record.Text, error) {
	for r.current == nil || r.row >= int(r.current.NumRows()) {
		if err := r.advance(); err != nil {
			return nil, err
		}
	}

	values := make([]record.Text, len(r.columns))
	for i, col := range r.columns {
		if col.IsValid(r.row) {
			values[i] = record.Str(col.Value(r.row))
		}
	}
	r.row++
	return values, nil
}

// advance releases the current batch and loads the next one
func (r *parquetReader) advance() error {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}

	rec, err := r.records.Read()
	if err != nil {
		return err
	}
	if rec == nil {
		return io.EOF
	}
	rec.Retain()

	columns := make([]*array.String, rec.NumCols())
	for i := range columns {
		col, ok := rec.Column(i).(*array.String)
		if !ok {
			rec.Release()
			return fmt.Errorf("column %s is %s, want utf8", r.header[i], rec.Column(i).DataType())
		}
		columns[i] = col
	}

	r.current = rec
	r.columns = columns
	r.row = 0
	return nil
}

func (r *parquetReader) Close() error {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	r.records.Release()
	err := r.pf.Close()
	if cerr := r.file.Close(); cerr != nil && err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}
