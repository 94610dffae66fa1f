package stage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wegman-software/osm2sql-go/internal/record"
)

func sampleDataset() *record.Dataset {
	ds := &record.Dataset{}
	ds.AddNode(record.Node{
		ID: record.Str("1"), Lat: record.Str("40.0"), Lon: record.Str("-75.0"),
		User: record.Str("alice, \"the mapper\""), UID: record.Str("7"),
	}, []record.NodeTag{{ID: "1", Key: "city", Value: "Springfield", Type: "addr"}})
	ds.AddNode(record.Node{ID: record.Str("2"), Lat: record.Str("40.1"), Lon: record.Str("-75.1")}, nil)
	ds.AddWay(record.Way{ID: record.Str("100")},
		[]record.WayTag{{ID: "100", Key: "note", Value: "", Type: record.TypeRegular}},
		[]record.WayNode{{ID: "100", NodeID: "1", Position: 0}, {ID: "100", NodeID: "2", Position: 1}})
	return ds
}

func readAll(t *testing.T, s *Stage, table record.Table) [][]record.Text {
	t.Helper()
	r, err := s.Open(table)
	if err != nil {
		t.Fatalf("failed to open %s: %v", table.Name, err)
	}
	defer r.Close()

	var rows [][]record.Text
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("failed to read %s: %v", table.Name, err)
		}
		rows = append(rows, row)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{FormatCSV, FormatParquet} {
		t.Run(format, func(t *testing.T) {
			s, err := New(t.TempDir(), format, 1)
			if err != nil {
				t.Fatal(err)
			}
			ds := sampleDataset()
			if err := s.WriteAll(ds); err != nil {
				t.Fatalf("WriteAll failed: %v", err)
			}

			for _, table := range record.Tables {
				want := ds.Rows(table)
				got := readAll(t, s, table)
				if len(got) != len(want) {
					t.Fatalf("%s: expected %d rows, got %d", table.Name, len(want), len(got))
				}
				for i := range want {
					wantValues := want[i].Values()
					for j := range wantValues {
						if got[i][j] != wantValues[j] {
							t.Errorf("%s row %d col %s: expected %+v, got %+v",
								table.Name, i, table.Columns[j].Name, wantValues[j], got[i][j])
						}
					}
				}
			}
		})
	}
}

func TestCSVHeaderAndNulls(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, FormatCSV, 0)
	if err != nil {
		t.Fatal(err)
	}
	ds := sampleDataset()
	if err := s.Write(record.NodesTable, ds.Rows(record.NodesTable)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "nodes.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "id,lat,lon,user,uid,version,changeset,timestamp" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != `2,40.1,-75.1,\N,\N,\N,\N,\N` {
		t.Errorf("unexpected null row %q", lines[2])
	}
}

func TestCSVNullableValues(t *testing.T) {
	tests := []struct {
		name string
		user record.Text
	}{
		{"null", record.Text{}},
		{"empty string", record.Str("")},
		{"plain", record.Str("alice")},
		{"literal marker", record.Str(`\N`)},
		{"leading backslash", record.Str(`\alice`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(t.TempDir(), FormatCSV, 0)
			if err != nil {
				t.Fatal(err)
			}
			rows := []record.Row{record.Node{ID: record.Str("1"), User: tt.user}}
			if err := s.Write(record.NodesTable, rows); err != nil {
				t.Fatal(err)
			}

			got := readAll(t, s, record.NodesTable)
			if len(got) != 1 {
				t.Fatalf("expected 1 row, got %d", len(got))
			}
			if user := got[0][3]; user != tt.user {
				t.Errorf("expected user %+v, got %+v", tt.user, user)
			}
		})
	}
}

func TestEmptyDataset(t *testing.T) {
	s, err := New(t.TempDir(), FormatCSV, 0)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Write(record.WaysTable, nil)
	var empty *EmptyDatasetError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyDatasetError, got %v", err)
	}
	if empty.Table != "ways" {
		t.Errorf("expected table ways, got %q", empty.Table)
	}
	if _, err := os.Stat(s.Path(record.WaysTable)); !os.IsNotExist(err) {
		t.Errorf("expected no staged file for ways")
	}

	// Other tables are unaffected
	ds := sampleDataset()
	if err := s.Write(record.NodesTable, ds.Rows(record.NodesTable)); err != nil {
		t.Fatalf("expected nodes to stage, got %v", err)
	}
	if n, err := s.Count(record.NodesTable); err != nil || n != 2 {
		t.Errorf("expected 2 staged nodes, got %d (%v)", n, err)
	}
}

func TestWriteAllStopsAtEmptyCollection(t *testing.T) {
	s, err := New(t.TempDir(), FormatCSV, 0)
	if err != nil {
		t.Fatal(err)
	}
	ds := sampleDataset()
	ds.Ways = nil

	var empty *EmptyDatasetError
	if err := s.WriteAll(ds); !errors.As(err, &empty) || empty.Table != "ways" {
		t.Fatalf("expected EmptyDatasetError for ways, got %v", err)
	}
}

func TestWriteOverwrites(t *testing.T) {
	s, err := New(t.TempDir(), FormatCSV, 0)
	if err != nil {
		t.Fatal(err)
	}
	ds := sampleDataset()
	if err := s.Write(record.NodesTable, ds.Rows(record.NodesTable)); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(record.NodesTable, ds.Rows(record.NodesTable)[:1]); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Count(record.NodesTable); err != nil || n != 1 {
		t.Errorf("expected 1 staged node after overwrite, got %d (%v)", n, err)
	}
}

func TestOpenRejectsHeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, FormatCSV, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(record.WayNodesTable), []byte("id,position,node_id\n1,0,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(record.WayNodesTable); err == nil {
		t.Error("expected header mismatch error")
	}
}

func TestOpenMissingFile(t *testing.T) {
	s, err := New(t.TempDir(), FormatParquet, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(record.NodesTable); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(t.TempDir(), "xlsx", 0); err == nil {
		t.Error("expected error for unknown format")
	}
}
