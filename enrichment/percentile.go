package enrichment

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Percentile windows.
const (
	// WindowBatch ranks each score against the scores already seen in the same provider run.
	WindowBatch = "batch"
	// WindowReference maps scores onto a fixed log scale.
	WindowReference = "reference"
	// WindowNone disables ranking; every record is Unranked.
	WindowNone = "none"
)

// PercentileContext ranks an engagement score within some distribution.
type PercentileContext interface {
	// Rank returns the percentile of score in [0,100].
	Rank(score float64) float64
}

// NewPercentileContext returns a fresh context for window.
// WindowNone yields nil, which the Engagement module treats as "no context".
func NewPercentileContext(window string) (PercentileContext, error) {
	switch window {
	case WindowBatch, "":
		return NewRunningPercentile(), nil
	case WindowReference:
		return ReferencePercentile{}, nil
	case WindowNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWindow, window)
	}
}

// RunningPercentile is an insert-then-query estimator over the scores seen so far.
// It is safe for concurrent use.
type RunningPercentile struct {
	mu     sync.Mutex
	sorted []float64
}

// NewRunningPercentile creates an empty estimator.
func NewRunningPercentile() *RunningPercentile {
	return &RunningPercentile{}
}

// Rank inserts score and returns its mid-rank percentile among all scores seen.
// The first score ranks at 50.
func (p *RunningPercentile) Rank(score float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := sort.SearchFloat64s(p.sorted, score)
	p.sorted = append(p.sorted, 0)
	copy(p.sorted[i+1:], p.sorted[i:])
	p.sorted[i] = score

	less := i
	equal := sort.SearchFloat64s(p.sorted, math.Nextafter(score, math.Inf(1))) - less
	n := len(p.sorted)
	return (float64(less) + 0.5*float64(equal)) / float64(n) * 100
}

// Len returns the number of scores seen.
func (p *RunningPercentile) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sorted)
}

// ReferencePercentile maps a score onto min(100, 25*log10(score+1)).
// Roughly: <100 points is Low, 500-2000 Average, >50000 Viral.
type ReferencePercentile struct{}

// Rank implements PercentileContext.
func (ReferencePercentile) Rank(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return math.Min(100, math.Log10(score+1)*25)
}
