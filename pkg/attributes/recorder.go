package attributes

import "time"

// Recorder receives build outcomes for metrics.
type Recorder interface {
	// ObserveBuild is called once per build with its final stats.
	ObserveBuild(categoryID string, stats Stats, elapsed time.Duration)
	// ObserveSuggestion is called after each suggestion request with the
	// number of equivalences it returned.
	ObserveSuggestion(categoryID string, learned int, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBuild(string, Stats, time.Duration) {}
func (nopRecorder) ObserveSuggestion(string, int, error)      {}

// NopRecorder discards everything.
func NopRecorder() Recorder { return nopRecorder{} }
