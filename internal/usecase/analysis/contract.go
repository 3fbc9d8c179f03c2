package analysis

import "time"

// Recorder receives pipeline measurements.
type Recorder interface {
	ObserveStage(mode, stage string, d time.Duration)
	// ObserveRun records a finished run; entities < 0 means the run failed before aggregation.
	ObserveRun(mode, status string, entities, truncated int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, string, time.Duration) {}
func (nopRecorder) ObserveRun(string, string, int, int)        {}
