package schema

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/wegman-software/osm2sql-go/internal/record"
	"github.com/wegman-software/osm2sql-go/internal/store"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		batch string
		want  []string
	}{
		{
			name: "comments and empty statements",
			batch: `-- leading comment
CREATE TABLE a (id INTEGER);

  CREATE TABLE b (id INTEGER)  ;
-- only a comment
;
;`,
			want: []string{"CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"},
		},
		{
			name: "semicolon inside a comment",
			batch: `-- ids are integers; text stays text
CREATE TABLE a (id INTEGER);
CREATE TABLE b (id INTEGER); -- trailing; note`,
			want: []string{"CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"},
		},
		{
			name: "comment after a column",
			batch: `CREATE TABLE a (
    id INTEGER, -- key; never null
    v TEXT
);`,
			want: []string{"CREATE TABLE a (\n    id INTEGER, \n    v TEXT\n)"},
		},
		{
			name:  "only comments",
			batch: "-- a; b\n-- c",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.batch)
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDefaultSchemasSplitIntoCreates(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		batch, err := Default(driver)
		if err != nil {
			t.Fatal(err)
		}
		for _, stmt := range Split(batch) {
			if !strings.HasPrefix(stmt, "CREATE ") {
				t.Errorf("%s: unexpected statement %q", driver, stmt)
			}
		}
	}
}

func TestDefaultSchemas(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		batch, err := Default(driver)
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		for _, table := range record.Tables {
			if !strings.Contains(batch, "CREATE TABLE IF NOT EXISTS "+table.Name+" (") {
				t.Errorf("%s schema is missing table %s", driver, table.Name)
			}
		}
	}
	if _, err := Default("oracle"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestApplyFileCreatesTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "osm.db")
	opener := store.NewSQLite(path, "")

	// Twice: the default schema is idempotent
	for i := 0; i < 2; i++ {
		n, err := ApplyFile(ctx, opener, "")
		if err != nil {
			t.Fatalf("apply %d failed: %v", i, err)
		}
		if n != 8 {
			t.Errorf("expected 8 statements, got %d", n)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, table := range record.Tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table.Name).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table.Name, err)
		}
	}
}

func TestApplyFileReportsStoreError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "bad.sql")
	if err := os.WriteFile(schemaPath, []byte("CREATE TABLE ok (id INTEGER);\nCREATE TABLEX broken;"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := ApplyFile(ctx, store.NewSQLite(filepath.Join(dir, "osm.db"), ""), schemaPath)
	var se *store.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if se.Op != "schema" {
		t.Errorf("expected op schema, got %q", se.Op)
	}
	if n != 1 {
		t.Errorf("expected failure at statement index 1, got %d", n)
	}
}
