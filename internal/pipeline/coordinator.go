package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm2sql-go/internal/config"
	"github.com/wegman-software/osm2sql-go/internal/extract"
	"github.com/wegman-software/osm2sql-go/internal/loader"
	"github.com/wegman-software/osm2sql-go/internal/logger"
	"github.com/wegman-software/osm2sql-go/internal/metrics"
	"github.com/wegman-software/osm2sql-go/internal/record"
	"github.com/wegman-software/osm2sql-go/internal/schema"
	"github.com/wegman-software/osm2sql-go/internal/stage"
	"github.com/wegman-software/osm2sql-go/internal/store"
	"github.com/wegman-software/osm2sql-go/internal/tags"
)

// ErrInvalidTransition is returned when a step runs before its predecessor
var ErrInvalidTransition = errors.New("invalid pipeline transition")

// Pipeline runs the export phases in order:
// traverse, stage, clear, load.
type Pipeline struct {
	cfg        *config.Config
	runID      string
	log        *zap.Logger
	classifier *tags.Classifier
	stage      *stage.Stage
	opener     store.Opener
	loader     *loader.Loader

	state   State
	dataset *record.Dataset
	stats   RunStats
}

// New creates a pipeline for cfg with a fresh run id
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	policy, err := tags.ParsePolicy(cfg.Tags.ProblemPolicy)
	if err != nil {
		return nil, err
	}

	st, err := stage.New(cfg.StageDir, cfg.StageFormat, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	opener, err := store.NewOpener(cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logger.WithRun(runID)

	return &Pipeline{
		cfg:        cfg,
		runID:      runID,
		log:        log,
		classifier: tags.NewClassifier(policy),
		stage:      st,
		opener:     opener,
		loader:     loader.NewLoader(opener, st, log),
		stats:      RunStats{RunID: runID},
	}, nil
}

// RunID returns the identifier attached to this pipeline's log lines
func (p *Pipeline) RunID() string { return p.runID }

// State returns the last completed phase
func (p *Pipeline) State() State { return p.state }

// Dataset returns the records built by Traverse, nil before it
func (p *Pipeline) Dataset() *record.Dataset { return p.dataset }

// Stats returns the statistics gathered so far
func (p *Pipeline) Stats() RunStats { return p.stats }

// Reset discards the dataset and returns the pipeline to the empty state
func (p *Pipeline) Reset() {
	p.state = StateEmpty
	p.dataset = nil
	p.stats = RunStats{RunID: p.runID}
}

func (p *Pipeline) require(step string, want State) error {
	if p.state != want {
		return fmt.Errorf("%w: %s requires state %s, pipeline is %s", ErrInvalidTransition, step, want, p.state)
	}
	return nil
}

// Traverse reads the input for location and builds the dataset
func (p *Pipeline) Traverse(ctx context.Context, location string) error {
	if err := p.require("traverse", StateEmpty); err != nil {
		return err
	}

	input := p.cfg.InputPath(location)
	var size int64
	if fi, err := os.Stat(input); err == nil {
		size = fi.Size()
	}

	p.log.Info("Traversing input",
		zap.String("location", location),
		zap.String("input", input),
		zap.String("size", extract.FormatBytes(size)))

	src, err := extract.OpenSource(ctx, input)
	if err != nil {
		return err
	}
	defer src.Close()

	ds, stats, err := extract.NewTraverser(p.classifier, p.log, size).Process(ctx, src)
	if err != nil {
		return err
	}

	p.dataset = ds
	p.stats.Location = location
	p.stats.Input = input
	p.stats.Extract = stats
	p.state = StateTraversed

	p.log.Info("Traversal complete",
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int("node_tags", len(ds.NodeTags)),
		zap.Int("way_tags", len(ds.WayTags)),
		zap.Int("way_nodes", len(ds.WayNodes)),
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)))
	return nil
}

// Stage writes the dataset to the stage directory
func (p *Pipeline) Stage() error {
	if err := p.require("stage", StateTraversed); err != nil {
		return err
	}

	start := time.Now()
	if err := p.stage.WriteAll(p.dataset); err != nil {
		return err
	}

	p.stats.Staged = p.dataset.Counts()
	p.state = StateStaged
	p.log.Info("Staged files written",
		zap.String("dir", p.stage.Dir()),
		zap.String("format", p.cfg.StageFormat),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return nil
}

// UseStaged adopts files staged by an earlier run, moving an empty pipeline
// straight to the staged state
func (p *Pipeline) UseStaged() error {
	if err := p.require("use staged files", StateEmpty); err != nil {
		return err
	}

	staged := make(map[string]int, len(record.Tables))
	for _, table := range record.Tables {
		n, err := p.stage.Count(table)
		if err != nil {
			return fmt.Errorf("staged %s unavailable: %w", table.Name, err)
		}
		staged[table.Name] = int(n)
	}

	p.stats.Staged = staged
	p.state = StateStaged
	p.log.Info("Using staged files", zap.String("dir", p.stage.Dir()))
	return nil
}

// Clear deletes all rows from the target relations
func (p *Pipeline) Clear(ctx context.Context) error {
	if err := p.require("clear", StateStaged); err != nil {
		return err
	}
	if err := p.loader.ClearAll(ctx); err != nil {
		return err
	}
	p.state = StateCleared
	p.log.Info("Store cleared", zap.String("driver", p.opener.Driver()))
	return nil
}

// Load fills the cleared relations from the staged files
func (p *Pipeline) Load(ctx context.Context) error {
	if err := p.require("load", StateCleared); err != nil {
		return err
	}
	stats, err := p.loader.LoadAll(ctx)
	p.stats.Load = stats
	if err != nil {
		return err
	}
	p.state = StateLoaded
	p.log.Info("Load complete", zap.Int64("rows", stats.RowsLoaded))
	return nil
}

// InitSchema applies the configured schema file, or the driver's embedded
// schema. It does not change the pipeline state.
func (p *Pipeline) InitSchema(ctx context.Context) error {
	n, err := schema.ApplyFile(ctx, p.opener, p.cfg.SchemaFile)
	if err != nil {
		return err
	}
	p.stats.SchemaStatements = n
	p.log.Info("Schema applied", zap.Int("statements", n))
	return nil
}

// Run performs every phase for location
func (p *Pipeline) Run(ctx context.Context, location string) (*RunStats, error) {
	return p.supervise(ctx, func(ctx context.Context) error {
		if err := p.Traverse(ctx, location); err != nil {
			return err
		}
		if err := p.Stage(); err != nil {
			return err
		}
		return p.clearAndLoad(ctx)
	})
}

// Extract traverses the input for location and stages it without touching
// the store
func (p *Pipeline) Extract(ctx context.Context, location string) (*RunStats, error) {
	return p.supervise(ctx, func(ctx context.Context) error {
		if err := p.Traverse(ctx, location); err != nil {
			return err
		}
		return p.Stage()
	})
}

// LoadStaged clears the store and loads files staged by an earlier extract
func (p *Pipeline) LoadStaged(ctx context.Context) (*RunStats, error) {
	return p.supervise(ctx, func(ctx context.Context) error {
		if err := p.UseStaged(); err != nil {
			return err
		}
		return p.clearAndLoad(ctx)
	})
}

func (p *Pipeline) clearAndLoad(ctx context.Context) error {
	if p.cfg.InitSchema {
		if err := p.InitSchema(ctx); err != nil {
			return err
		}
	}
	if err := p.Clear(ctx); err != nil {
		return err
	}
	return p.Load(ctx)
}

// supervise runs fn alongside the metrics collector when one is configured
func (p *Pipeline) supervise(ctx context.Context, fn func(context.Context) error) (*RunStats, error) {
	start := time.Now()

	var err error
	if p.cfg.MetricsInterval <= 0 {
		err = fn(ctx)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		metricsCtx, stopMetrics := context.WithCancel(gctx)
		defer stopMetrics()

		collector := metrics.NewCollector(p.cfg.MetricsInterval, p.log)
		p.log.Info("System metrics collection started",
			zap.Duration("interval", p.cfg.MetricsInterval))
		g.Go(func() error {
			collector.Start(metricsCtx)
			return nil
		})
		g.Go(func() error {
			defer stopMetrics()
			return fn(gctx)
		})
		err = g.Wait()
	}

	p.stats.Duration = time.Since(start)
	return &p.stats, err
}
