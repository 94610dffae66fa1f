package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Staged file formats
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// LocationPlaceholder is replaced by the location name in InputTemplate
const LocationPlaceholder = "{location}"

// DBConfig holds the target store settings
type DBConfig struct {
	Driver string `yaml:"driver"`

	// SQLite
	Path string `yaml:"path"`

	// PostgreSQL
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Schema   string `yaml:"schema"`
}

// TagsConfig holds tag classification settings
type TagsConfig struct {
	// ProblemPolicy is "leading" (only a leading problem character drops a
	// key) or "anywhere" (any problem character drops a key)
	ProblemPolicy string `yaml:"problem_policy"`
}

// Config holds the global configuration for a load run
type Config struct {
	// Input settings
	InputTemplate string `yaml:"input_template"` // e.g. maps/{location}-map.xml
	InputFile     string `yaml:"-"`              // explicit input path, overrides the template

	// Staging settings
	StageDir    string `yaml:"stage_dir"`
	StageFormat string `yaml:"stage_format"`
	BatchSize   int    `yaml:"batch_size"` // rows per Parquet row group

	// Store settings
	DB         DBConfig `yaml:"db"`
	SchemaFile string   `yaml:"schema_file"` // empty = embedded schema for the driver
	InitSchema bool     `yaml:"init_schema"`

	Tags TagsConfig `yaml:"tags"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose"`
	LogFile         string        `yaml:"log_file"`         // empty = no file logging
	MetricsInterval time.Duration `yaml:"metrics_interval"` // 0 = disabled
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		InputTemplate: "maps/" + LocationPlaceholder + "-map.xml",
		StageDir:      "data",
		StageFormat:   FormatCSV,
		BatchSize:     100000,
		DB: DBConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join("db", "osm-data.db"),
			Host:   "localhost",
			Port:   5432,
			Name:   "osm",
			User:   "postgres",
			Schema: "public",
		},
		Tags: TagsConfig{
			ProblemPolicy: "leading",
		},
	}
}

// LoadFile overlays settings from a YAML file onto c. Keys missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// InputPath resolves the input file for a location name
func (c *Config) InputPath(location string) string {
	if c.InputFile != "" {
		return c.InputFile
	}
	return strings.ReplaceAll(c.InputTemplate, LocationPlaceholder, location)
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DB.Host, c.DB.Port, c.DB.Name, c.DB.User,
	)
	if c.DB.Password != "" {
		connStr += fmt.Sprintf(" password=%s", c.DB.Password)
	}
	if c.DB.Schema != "" && c.DB.Schema != "public" {
		connStr += fmt.Sprintf(" search_path=%s", c.DB.Schema)
	}
	return connStr
}

// SQLiteDSN returns the data source name for the SQLite driver
func (c *Config) SQLiteDSN() string {
	return c.DB.Path + "?mode=rwc"
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" && !strings.Contains(c.InputTemplate, LocationPlaceholder) {
		return fmt.Errorf("input template %q must contain %s", c.InputTemplate, LocationPlaceholder)
	}
	if c.StageDir == "" {
		return fmt.Errorf("stage directory is required")
	}
	switch c.StageFormat {
	case FormatCSV, FormatParquet:
	default:
		return fmt.Errorf("unknown stage format %q (want %s or %s)", c.StageFormat, FormatCSV, FormatParquet)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("postgres host and database name are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q (want %s or %s)", c.DB.Driver, DriverSQLite, DriverPostgres)
	}
	switch c.Tags.ProblemPolicy {
	case "leading", "anywhere":
	default:
		return fmt.Errorf("unknown problem character policy %q (want leading or anywhere)", c.Tags.ProblemPolicy)
	}
	if c.MetricsInterval < 0 {
		return fmt.Errorf("metrics interval must not be negative")
	}
	return nil
}
