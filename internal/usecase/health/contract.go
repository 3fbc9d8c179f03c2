package health

import "context"

// PipelineChecker runs the analysis pipeline on a fixed probe corpus.
type PipelineChecker interface {
	SelfCheck(ctx context.Context) error
}
