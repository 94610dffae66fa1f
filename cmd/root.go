package cmd

import (
	"os"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wegman-software/osm2sql-go/internal/config"
	"github.com/wegman-software/osm2sql-go/internal/logger"
)

var (
	cfg        = config.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "osm2sql-go",
	Short: "OSM map export to relational tables",
	Long: `osm2sql-go reads an OpenStreetMap export for a location and loads it
into five relational tables: nodes, nodes_tags, ways, ways_tags and ways_nodes.

The run is sequential:
  1. Traverse the XML (or PBF) export and build node and way records
  2. Stage one CSV or Parquet file per table
  3. Clear the target tables
  4. Load the staged files in dependency order

The target store is SQLite (default) or PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			if err := loadConfigFile(cmd, configFile); err != nil {
				logger.Init(cfg.Verbose)
				exitWithError("failed to load config file", err)
			}
		}

		// Initialize logger with optional file output
		logger.InitWithFile(cfg.Verbose, cfg.LogFile)
	},
}

func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&configFile, "config", "c", "", "YAML config file (flags override its values)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose output")

	// Logging and metrics flags
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Path to log file for persistent logging (JSON format)")
	flags.DurationVar(&cfg.MetricsInterval, "metrics-interval", cfg.MetricsInterval, "Interval for system metrics logging, 0 disables (e.g., 10s, 1m)")

	// Input and staging flags
	flags.StringVar(&cfg.InputTemplate, "input-template", cfg.InputTemplate, "Input path template, "+config.LocationPlaceholder+" is replaced by the location")
	flags.StringVarP(&cfg.StageDir, "stage-dir", "o", cfg.StageDir, "Directory for staged table files")
	flags.StringVar(&cfg.StageFormat, "stage-format", cfg.StageFormat, "Staged file format (csv or parquet)")
	flags.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per Parquet row group")
	flags.StringVar(&cfg.Tags.ProblemPolicy, "problem-policy", cfg.Tags.ProblemPolicy, "Reject tag keys with a problem character: leading or anywhere")

	// Database flags (persistent so they're available to all subcommands)
	flags.StringVar(&cfg.DB.Driver, "db-driver", cfg.DB.Driver, "Target store (sqlite or postgres)")
	flags.StringVar(&cfg.DB.Path, "db-path", cfg.DB.Path, "SQLite database file")
	flags.StringVar(&cfg.DB.Host, "db-host", cfg.DB.Host, "PostgreSQL host")
	flags.IntVar(&cfg.DB.Port, "db-port", cfg.DB.Port, "PostgreSQL port")
	flags.StringVarP(&cfg.DB.Name, "db-name", "d", cfg.DB.Name, "PostgreSQL database name")
	flags.StringVarP(&cfg.DB.User, "db-user", "U", cfg.DB.User, "PostgreSQL user")
	flags.StringVarP(&cfg.DB.Password, "db-password", "W", cfg.DB.Password, "PostgreSQL password")
	flags.StringVar(&cfg.DB.Schema, "db-schema", cfg.DB.Schema, "PostgreSQL schema")
	flags.StringVar(&cfg.SchemaFile, "schema-file", cfg.SchemaFile, "Schema statement file (default: built-in schema for the driver)")
}

// loadConfigFile overlays path onto cfg, then reapplies every flag given on
// the command line so flags win over the file
func loadConfigFile(cmd *cobra.Command, path string) error {
	explicit := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := cfg.LoadFile(path); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
