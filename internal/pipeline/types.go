package pipeline

import (
	"fmt"
	"time"

	"github.com/wegman-software/osm2sql-go/internal/extract"
	"github.com/wegman-software/osm2sql-go/internal/loader"
)

// State is the phase a pipeline has completed
type State int

const (
	StateEmpty State = iota
	StateTraversed
	StateStaged
	StateCleared
	StateLoaded
)

var stateNames = [...]string{"empty", "traversed", "staged", "cleared", "loaded"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// RunStats holds combined statistics for one pipeline run
type RunStats struct {
	RunID    string
	Location string
	Input    string

	Extract extract.Stats
	Staged  map[string]int // records per table
	Load    *loader.Stats

	SchemaStatements int
	Duration         time.Duration
}
