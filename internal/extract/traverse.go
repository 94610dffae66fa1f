package extract

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2sql-go/internal/record"
	"github.com/wegman-software/osm2sql-go/internal/tags"
)

// progressEvery is how many elements pass between progress clock checks
const progressEvery = 4096

// Stats holds traversal statistics
type Stats struct {
	Nodes     int64
	Ways      int64
	BytesRead int64
	Duration  time.Duration
}

// Traverser walks a Source once and builds the dataset of a run
type Traverser struct {
	classifier       *tags.Classifier
	log              *zap.Logger
	totalBytes       int64
	progressInterval time.Duration
}

// NewTraverser creates a traverser. totalBytes is the input size used for
// progress estimates, 0 if unknown.
func NewTraverser(cls *tags.Classifier, log *zap.Logger, totalBytes int64) *Traverser {
	if cls == nil {
		cls = tags.NewClassifier(tags.PolicyLeading)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Traverser{
		classifier:       cls,
		log:              log,
		totalBytes:       totalBytes,
		progressInterval: 5 * time.Second,
	}
}

// Process reads every element of src and returns the accumulated records.
// Elements other than node and way are ignored. The first parse error aborts
// the traversal.
func (t *Traverser) Process(ctx context.Context, src Source) (*record.Dataset, Stats, error) {
	ds := &record.Dataset{}
	var stats Stats

	start := time.Now()
	progress := NewProgressTracker(t.totalBytes)
	lastReport := start

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		el, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}

		switch el.Name {
		case ElementNode:
			ds.AddNode(BuildNode(&el, t.classifier))
			stats.Nodes++
		case ElementWay:
			ds.AddWay(BuildWay(&el, t.classifier))
			stats.Ways++
		default:
			return nil, stats, fmt.Errorf("unexpected element %q from source", el.Name)
		}

		if n := stats.Nodes + stats.Ways; n%progressEvery == 0 && time.Since(lastReport) >= t.progressInterval {
			lastReport = time.Now()
			p := progress.Calculate(n, src.BytesRead())
			t.log.Debug("Traversal progress",
				zap.Int64("nodes", stats.Nodes),
				zap.Int64("ways", stats.Ways),
				zap.String("processed", FormatBytes(p.Bytes)),
				zap.String("percent", fmt.Sprintf("%.1f%%", p.Percentage)),
				zap.String("throughput", FormatThroughput(p.Throughput)),
				zap.String("eta", FormatETA(p.ETA)))
		}
	}

	stats.BytesRead = src.BytesRead()
	stats.Duration = time.Since(start)
	return ds, stats, nil
}
