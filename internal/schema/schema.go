// Package schema creates the target relations from a statement file.
package schema

import (
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wegman-software/osm2sql-go/internal/store"
)

//go:embed sql/*.sql
var defaults embed.FS

// Default returns the embedded schema for a driver
func Default(driver string) (string, error) {
	data, err := defaults.ReadFile("sql/" + driver + ".sql")
	if err != nil {
		return "", fmt.Errorf("no default schema for driver %q", driver)
	}
	return string(data), nil
}

// Split breaks a batch into statements on ';'. Line comments are removed
// first, then statements are trimmed and empty ones dropped.
func Split(batch string) []string {
	var stmts []string
	for _, part := range strings.Split(stripComments(batch), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// stripComments drops everything from "--" to the end of each line
func stripComments(batch string) string {
	lines := strings.Split(batch, "\n")
	for i, line := range lines {
		if before, _, found := strings.Cut(line, "--"); found {
			lines[i] = before
		}
	}
	return strings.Join(lines, "\n")
}

// Apply executes every statement of the batch read from r and commits
func Apply(ctx context.Context, conn store.Conn, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema: %w", err)
	}

	stmts := Split(string(data))
	for i, stmt := range stmts {
		if err := conn.Exec(ctx, stmt); err != nil {
			return i, &store.StoreError{Op: "schema", Err: fmt.Errorf("statement %d: %w", i+1, err)}
		}
	}
	if err := conn.Commit(ctx); err != nil {
		return len(stmts), &store.StoreError{Op: "commit", Err: err}
	}
	return len(stmts), nil
}

// ApplyFile applies the schema file at path, or the driver's embedded
// schema when path is empty. It opens and closes its own connection.
func ApplyFile(ctx context.Context, opener store.Opener, path string) (int, error) {
	var r io.Reader
	if path == "" {
		batch, err := Default(opener.Driver())
		if err != nil {
			return 0, err
		}
		r = strings.NewReader(batch)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("failed to open schema file: %w", err)
		}
		defer f.Close()
		r = f
	}

	conn, err := opener.Open(ctx)
	if err != nil {
		return 0, &store.StoreError{Op: "open", Err: err}
	}
	defer conn.Close(ctx)

	return Apply(ctx, conn, r)
}
