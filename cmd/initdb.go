package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2sql-go/internal/config"
	"github.com/wegman-software/osm2sql-go/internal/logger"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the target tables",
	Long: `Apply a schema statement file to the target store.

Statements are separated by ';'. Without --schema-file the built-in schema
for the configured driver is used; it creates nodes, nodes_tags, ways,
ways_tags and ways_nodes if they do not exist.`,
	Args: cobra.NoArgs,
	Run:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, args []string) {
	p := newPipeline()
	log := logger.WithRun(p.RunID())

	schemaFile := cfg.SchemaFile
	if schemaFile == "" {
		schemaFile = "built-in"
	}
	log.Info("Initializing schema",
		zap.String("driver", cfg.DB.Driver),
		zap.String("target", target()),
		zap.String("schema", schemaFile),
	)

	ctx, stop := signalContext()
	defer stop()

	if err := p.InitSchema(ctx); err != nil {
		exitWithError("schema initialization failed", err)
	}
	log.Info("Schema ready", zap.Int("statements", p.Stats().SchemaStatements))
}

// target describes the configured store for log lines
func target() string {
	if cfg.DB.Driver == config.DriverPostgres {
		return fmt.Sprintf("%s:%d/%s", cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	}
	return cfg.DB.Path
}
