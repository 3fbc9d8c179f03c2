package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema signals that required input columns are missing or empty.
	ErrSchema = errors.New("schema error")
	// ErrVectorization signals that feature extraction produced no usable vocabulary.
	ErrVectorization = errors.New("vectorization error")
	// ErrEmptyCorpus signals that no entities remain after aggregation.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrClustering signals a numerical failure while building the merge tree.
	ErrClustering = errors.New("clustering error")
)

// Pipeline stage names used in StageError and in logs/metrics.
const (
	StageParse     = "parse"
	StageAggregate = "aggregate"
	StageSimilar   = "similarity"
	StageCluster   = "cluster"
	StageReorder   = "reorder"
)

// StageError tags a pipeline failure with the stage and corpus size it happened at.
type StageError struct {
	Stage    string
	Entities int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage (%d entities): %v", e.Stage, e.Entities, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with stage context. Returns nil for a nil err.
func NewStageError(stage string, entities int, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Entities: entities, Err: err}
}
