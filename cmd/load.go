package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2sql-go/internal/logger"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load staged files into the database",
	Long: `Load files written by an earlier extract into the target store.

This stage:
  1. Optionally creates missing tables (--init-schema)
  2. Deletes every row of the five target tables
  3. Loads each staged file on its own connection, in dependency order

PostgreSQL targets are filled with COPY; SQLite targets with
parameterized inserts.`,
	Args: cobra.NoArgs,
	Run:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&cfg.InitSchema, "init-schema", cfg.InitSchema, "Create missing tables before loading")
}

func runLoad(cmd *cobra.Command, args []string) {
	p := newPipeline()
	log := logger.WithRun(p.RunID())
	log.Info("Starting load",
		zap.String("input_dir", cfg.StageDir),
		zap.String("format", cfg.StageFormat),
		zap.String("driver", cfg.DB.Driver),
		zap.String("target", target()),
	)

	ctx, stop := signalContext()
	defer stop()

	stats, err := p.LoadStaged(ctx)
	if err != nil {
		exitWithError("load failed", err)
	}

	elapsed := stats.Duration
	fields := []zap.Field{
		zap.Duration("duration", elapsed.Round(time.Millisecond)),
		zap.Int64("rows", stats.Load.RowsLoaded),
	}
	if elapsed > 0 {
		fields = append(fields, zap.Float64("throughput_rows_s", float64(stats.Load.RowsLoaded)/elapsed.Seconds()))
	}
	log.Info("Load complete", fields...)
}
