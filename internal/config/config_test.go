package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.DB.Driver != DriverSQLite {
		t.Errorf("expected sqlite default driver, got %s", cfg.DB.Driver)
	}
	if cfg.DB.Path != filepath.Join("db", "osm-data.db") {
		t.Errorf("unexpected default db path %s", cfg.DB.Path)
	}
}

func TestInputPath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.InputPath("springfield"); got != "maps/springfield-map.xml" {
		t.Errorf("expected template expansion, got %s", got)
	}

	cfg.InputFile = "/tmp/other.osm.pbf"
	if got := cfg.InputPath("springfield"); got != "/tmp/other.osm.pbf" {
		t.Errorf("expected explicit input to win, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"template without placeholder", func(c *Config) { c.InputTemplate = "maps/map.xml" }, "must contain"},
		{"explicit input without placeholder", func(c *Config) { c.InputTemplate = "x"; c.InputFile = "a.osm" }, ""},
		{"empty stage dir", func(c *Config) { c.StageDir = "" }, "stage directory"},
		{"unknown stage format", func(c *Config) { c.StageFormat = "json" }, "stage format"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch size"},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "database driver"},
		{"sqlite without path", func(c *Config) { c.DB.Path = "" }, "sqlite database path"},
		{"postgres without host", func(c *Config) { c.DB.Driver = DriverPostgres; c.DB.Host = "" }, "host"},
		{"postgres", func(c *Config) { c.DB.Driver = DriverPostgres }, ""},
		{"unknown policy", func(c *Config) { c.Tags.ProblemPolicy = "sometimes" }, "policy"},
		{"anywhere policy", func(c *Config) { c.Tags.ProblemPolicy = "anywhere" }, ""},
		{"negative metrics interval", func(c *Config) { c.MetricsInterval = -time.Second }, "metrics interval"},
		{"parquet", func(c *Config) { c.StageFormat = FormatParquet }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.ConnectionString()
	want := "host=localhost port=5432 dbname=osm user=postgres sslmode=disable"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	cfg.DB.Password = "secret"
	cfg.DB.Schema = "osm"
	got = cfg.ConnectionString()
	if !strings.Contains(got, "password=secret") || !strings.Contains(got, "search_path=osm") {
		t.Errorf("expected password and search_path, got %q", got)
	}
}

func TestSQLiteDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DB.Path = "db/test.db"
	if got := cfg.SQLiteDSN(); got != "db/test.db?mode=rwc" {
		t.Errorf("unexpected DSN %q", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osm2sql.yaml")
	data := `
input_template: exports/{location}.osm
stage_format: parquet
db:
  driver: postgres
  host: db.internal
  port: 6432
tags:
  problem_policy: anywhere
metrics_interval: 15s
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.InputPath("x") != "exports/x.osm" {
		t.Errorf("unexpected input path %s", cfg.InputPath("x"))
	}
	if cfg.StageFormat != FormatParquet || cfg.DB.Driver != DriverPostgres || cfg.DB.Port != 6432 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.MetricsInterval != 15*time.Second {
		t.Errorf("expected 15s metrics interval, got %v", cfg.MetricsInterval)
	}
	// Keys missing from the file keep their defaults
	if cfg.StageDir != "data" || cfg.DB.User != "postgres" {
		t.Errorf("defaults lost: stage_dir=%s user=%s", cfg.StageDir, cfg.DB.User)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("db: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
