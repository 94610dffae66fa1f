package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2sql-go/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract <location>",
	Short: "Traverse an OSM export and write staged files",
	Long: `Traverse the OSM export for a location and write the staged files
without touching the database:

  - nodes.csv       (id, lat, lon, user, uid, version, changeset, timestamp)
  - nodes_tags.csv  (id, key, value, type)
  - ways.csv        (id, user, uid, version, changeset, timestamp)
  - ways_tags.csv   (id, key, value, type)
  - ways_nodes.csv  (id, node_id, position)

With --stage-format parquet the files are written as Parquet instead.
Load them later with the load command.`,
	Args: cobra.ExactArgs(1),
	Run:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&cfg.InputFile, "input", "i", "", "Input file (overrides the input template)")
}

func runExtract(cmd *cobra.Command, args []string) {
	location := args[0]

	p := newPipeline()
	log := logger.WithRun(p.RunID())
	log.Info("Starting extraction",
		zap.String("location", location),
		zap.String("input", cfg.InputPath(location)),
		zap.String("output", cfg.StageDir),
		zap.String("format", cfg.StageFormat),
	)

	ctx, stop := signalContext()
	defer stop()

	stats, err := p.Extract(ctx, location)
	if err != nil {
		exitWithError("extraction failed", err)
	}

	fields := []zap.Field{
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)),
		zap.Int64("nodes", stats.Extract.Nodes),
		zap.Int64("ways", stats.Extract.Ways),
		zap.Float64("throughput_mb_s", throughputMB(stats.Extract.BytesRead, stats.Duration)),
	}
	for table, n := range stats.Staged {
		fields = append(fields, zap.Int(table, n))
	}
	log.Info("Extraction complete", fields...)
}
